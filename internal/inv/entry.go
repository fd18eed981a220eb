package inv

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrRootInaccessible is returned when the scan root cannot be resolved
	// or is not a directory. No inventory is produced.
	ErrRootInaccessible = errors.New("scan root inaccessible")

	// ErrOutputUnwritable is returned when an output destination cannot be
	// written. It is checked before the scan starts.
	ErrOutputUnwritable = errors.New("output destination unwritable")

	// ErrRunNotFound is returned by lookups of stored runs.
	ErrRunNotFound = errors.New("run not found")
)

// Entry is one filesystem object (file or directory) visited during a run.
type Entry struct {
	ID         int64
	ParentID   int64
	Path       string
	ParentPath string
	Name       string
	IsDir      bool
	// Mode holds the type bits of the object (fs.ModeSymlink,
	// fs.ModeNamedPipe, ...). It is zero for regular files.
	Mode fs.FileMode
	// Size is undefined for directories; it stays 0 and reports write it
	// as null.
	Size       int64
	CreatedAt  time.Time
	ModifiedAt time.Time
	AccessedAt time.Time
	Extension  string
	BaseName   string
	// Hash is empty unless hashing was enabled for the run and the entry is
	// a file; failed digests hold HashAccessDenied or HashError.
	Hash string
}

// Regular reports whether the entry is a regular file, the only kind whose
// content is digested. Unfollowed symlinks, FIFOs, sockets and devices are not.
func (e *Entry) Regular() bool {
	return !e.IsDir && e.Mode.Type() == 0
}

// SplitName derives the Extension and BaseName of a file name.
// The extension keeps its leading dot (".txt"). A name whose only dot is the
// leading one (".bashrc") has no extension.
func SplitName(name string) (ext, base string) {
	ext = filepath.Ext(name)
	if ext == name || ext == "." {
		return "", name
	}
	return ext, strings.TrimSuffix(name, ext)
}

// Category classifies the pipeline stage a recoverable failure came from.
type Category string

const (
	// CategoryEnumeration covers failures to list a directory or to stat a
	// listed object.
	CategoryEnumeration   Category = "Enumeration"
	CategoryHash          Category = "Hash"
	CategoryAccessControl Category = "AccessControl"
)

// ErrorRecord is one recoverable failure captured during a run.
type ErrorRecord struct {
	Path     string
	Message  string
	Category Category
}

// RunStatus summarizes how a run ended.
type RunStatus string

const (
	// StatusComplete means every object under the root was inventoried.
	StatusComplete RunStatus = "complete"
	// StatusPartial means the run finished but recorded errors.
	StatusPartial RunStatus = "partial"
	// StatusCancelled means the run was aborted; the entries are a
	// consistent but incomplete prefix of the tree.
	StatusCancelled RunStatus = "cancelled"
)

// Inventory is the finalized result of one run.
type Inventory struct {
	RunID        string
	Root         string
	IncludeFiles bool
	Algorithm    HashAlgorithm
	Status       RunStatus
	StartedAt    time.Time
	FinishedAt   time.Time

	Entries []*Entry
	Errors  []*ErrorRecord
	// Access holds ownership records when access-control collection was
	// enabled, in entry order.
	Access []*AccessRecord
}

// HashEnabled reports whether the run computed digests. When false the hash
// column is absent from every export.
func (inv *Inventory) HashEnabled() bool {
	return inv.Algorithm != HashNone
}

// EntryByPath returns the entry for path, or nil.
func (inv *Inventory) EntryByPath(path string) *Entry {
	for _, e := range inv.Entries {
		if e.Path == path {
			return e
		}
	}
	return nil
}

// Counts returns the number of directory and file entries.
func (inv *Inventory) Counts() (dirs, files int) {
	for _, e := range inv.Entries {
		if e.IsDir {
			dirs++
		} else {
			files++
		}
	}
	return dirs, files
}
