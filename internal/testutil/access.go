package testutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"fsinv/internal/inv"
)

// MockAccessReader returns a fixed owner for every path unless a failure
// was injected for it.
type MockAccessReader struct {
	mu    sync.Mutex
	fails map[string]error
}

func NewMockAccessReader() *MockAccessReader {
	return &MockAccessReader{fails: make(map[string]error)}
}

// Fail makes ReadAccess of path fail with err.
func (r *MockAccessReader) Fail(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fails[filepath.Clean(path)] = err
}

func (r *MockAccessReader) ReadAccess(path string) (*inv.AccessRecord, error) {
	r.mu.Lock()
	err, failed := r.fails[filepath.Clean(path)]
	r.mu.Unlock()
	if failed {
		return nil, fmt.Errorf("reading access control: %w", &fs.PathError{Op: "lstat", Path: path, Err: err})
	}
	return &inv.AccessRecord{
		Path:  path,
		Owner: "tester",
		Group: "staff",
		UID:   1000,
		GID:   1000,
		Mode:  "-rw-r--r--",
	}, nil
}

var _ inv.AccessReader = (*MockAccessReader)(nil)
