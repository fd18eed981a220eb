package inv

import (
	"io"
	"io/fs"
	"time"
)

// FilesystemManager provides an interface for filesystem operations.
// It abstracts file access to enable testing without touching the real filesystem.
// Every method may fail with a wrapped fs.ErrNotExist, fs.ErrPermission or an
// I/O error; callers classify with errors.Is.
type FilesystemManager interface {
	// Resolve validates a raw scan root and returns a Path object.
	// It resolves the path to an absolute path, stats it, and fails unless
	// it is an existing directory.
	Resolve(rawPath string) (*Path, error)

	// Lstat returns file info without following a trailing symlink.
	Lstat(path string) (fs.FileInfo, error)

	// Stat returns file info, following symlinks.
	Stat(path string) (fs.FileInfo, error)

	// ReadDir lists a directory. On failure part-way through it returns the
	// entries read so far together with the error.
	ReadDir(path string) ([]fs.DirEntry, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// ExtractStatData extracts platform-specific metadata for path.
	// info is the FileInfo previously returned by Lstat or Stat for path.
	ExtractStatData(path string, info fs.FileInfo) (*StatData, error)
}

// StatData holds the metadata the inventory needs beyond fs.FileInfo.
type StatData struct {
	// Dev and Ino identify the object on its device. Both zero when the
	// platform cannot report them.
	Dev uint64
	Ino uint64

	UID int64
	GID int64

	AccessedAt time.Time
	ChangedAt  time.Time
	// BornAt is the creation (birth) time, zero when unavailable.
	BornAt time.Time
}

// CreatedAt returns the best available creation time: the birth time when the
// filesystem records one, otherwise the earlier of ctime and mtime.
func (s *StatData) CreatedAt(modTime time.Time) time.Time {
	if !s.BornAt.IsZero() {
		return s.BornAt
	}
	if !s.ChangedAt.IsZero() && s.ChangedAt.Before(modTime) {
		return s.ChangedAt
	}
	return modTime
}
