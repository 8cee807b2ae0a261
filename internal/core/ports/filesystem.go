package ports

import "time"

// FileSystem is the part of the file system the engine observes and changes.
//
//go:generate mockgen -source=filesystem.go -destination=mocks/mock_filesystem.go -package=mocks
type FileSystem interface {
	// Stat returns the modification time of path and whether it exists.
	// A missing path is not an error.
	Stat(path string) (modTime time.Time, exists bool, err error)
	// Remove deletes path. A missing path is not an error.
	Remove(path string) error
}

// DependencyScanner extracts discovered dependencies from a depfile.
type DependencyScanner interface {
	// Scan returns the prerequisite paths listed in the depfile at path.
	Scan(path string) ([]string, error)
}
