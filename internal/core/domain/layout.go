package domain

import "path/filepath"

const (
	// SweetDirName is the name of the internal state directory below the root.
	SweetDirName = ".sweet"

	// GraphFileName is the name of the persisted dependency graph.
	GraphFileName = "graph"

	// YAMLBuildfileName is the name of the YAML buildfile.
	YAMLBuildfileName = "sweet.yaml"

	// HCLBuildfileName is the name of the HCL buildfile.
	HCLBuildfileName = "sweet.hcl"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultSweetPath returns the state directory below root.
func DefaultSweetPath(root string) string {
	return filepath.Join(root, SweetDirName)
}

// DefaultGraphPath returns the default path of the persisted graph below root.
// It joins .sweet and graph.
func DefaultGraphPath(root string) string {
	return filepath.Join(root, SweetDirName, GraphFileName)
}

// BuildfileNames lists the buildfile names in lookup order.
func BuildfileNames() []string {
	return []string{YAMLBuildfileName, HCLBuildfileName}
}
