package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"fsinv/internal/inv"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
// It performs actual filesystem operations using the os package and never
// modifies anything it reads.
type OSFilesystemManager struct{}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

// Resolve validates a raw scan root and returns a Path object.
// A symlink to a directory is accepted; the returned path is the absolute
// form of rawPath, not the link target.
func (m *OSFilesystemManager) Resolve(rawPath string) (*inv.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absPath)
	}

	return inv.NewPath(absPath, true, info), nil
}

// Lstat returns file info without following a trailing symlink.
func (m *OSFilesystemManager) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

// Stat returns file info, following symlinks.
func (m *OSFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// ReadDir lists a directory sorted by name. If reading fails part-way the
// entries read before the failure are returned with the error.
func (m *OSFilesystemManager) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Compile-time check that OSFilesystemManager implements inv.FilesystemManager interface
var _ inv.FilesystemManager = (*OSFilesystemManager)(nil)
