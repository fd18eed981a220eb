package inv

import (
	"io/fs"
	"path/filepath"
)

// Path represents a validated scan root with cached metadata.
// Path objects are created by FilesystemManager.Resolve() which checks that
// the path exists and is a directory, makes it absolute, and caches stat info.
type Path struct {
	absPath string
	isDir   bool
	info    fs.FileInfo
}

// NewPath creates a Path from its components.
// This is primarily for use by FilesystemManager implementations.
func NewPath(absPath string, isDir bool, info fs.FileInfo) *Path {
	return &Path{
		absPath: absPath,
		isDir:   isDir,
		info:    info,
	}
}

// String returns the absolute path as a string.
func (p *Path) String() string {
	return p.absPath
}

// IsDir returns true if this path points to a directory.
func (p *Path) IsDir() bool {
	return p.isDir
}

// Info returns the cached file info from when the path was resolved.
func (p *Path) Info() fs.FileInfo {
	return p.info
}

// Name returns the final element of the path. For a filesystem root such as
// "/" the root itself is returned.
func (p *Path) Name() string {
	return filepath.Base(p.absPath)
}

// ParentPath returns the directory containing this path, or "" when the path
// is a filesystem root and has no parent.
func (p *Path) ParentPath() string {
	return parentOf(p.absPath)
}

func parentOf(path string) string {
	dir := filepath.Dir(path)
	if dir == path {
		return ""
	}
	return dir
}
