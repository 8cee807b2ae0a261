package ports

import (
	"context"
	"iter"
)

// WatchOp is the kind of change behind a WatchEvent.
type WatchOp uint8

// Changes reported by a Watcher. Attribute-only changes are not reported.
const (
	OpCreate WatchOp = iota
	OpWrite
	OpRemove
	OpRename
)

// WatchEvent is one change below the watched root.
type WatchEvent struct {
	// Path is absolute.
	Path      string
	Operation WatchOp
}

// Watcher reports changes to files below a project root.
//
//go:generate mockgen -source=watcher.go -destination=mocks/mock_watcher.go -package=mocks
type Watcher interface {
	// Start watches root and every directory below it, including directories
	// created later. Events stop when ctx is done.
	Start(ctx context.Context, root string) error
	// Stop releases the watches.
	Stop() error
	// Events yields changes until the watcher stops.
	Events() iter.Seq[WatchEvent]
}

// WatcherFactory creates a Watcher on demand, so commands that never watch
// do not hold file system watches.
type WatcherFactory func() (Watcher, error)
