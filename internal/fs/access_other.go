//go:build !unix

package fs

import (
	"fmt"

	"fsinv/internal/inv"
)

// OSAccessReader is unavailable on this platform; every read fails and is
// recorded as an AccessControl error.
type OSAccessReader struct{}

// NewOSAccessReader creates an OSAccessReader.
func NewOSAccessReader() *OSAccessReader {
	return &OSAccessReader{}
}

// ReadAccess always fails on this platform.
func (r *OSAccessReader) ReadAccess(path string) (*inv.AccessRecord, error) {
	return nil, fmt.Errorf("reading ownership of %s: not supported on this platform", path)
}

var _ inv.AccessReader = (*OSAccessReader)(nil)
