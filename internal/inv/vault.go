package inv

import (
	"errors"
	"io"
)

// ErrReportNotFound is returned by Vault.GetReport for unknown reports.
var ErrReportNotFound = errors.New("report not found")

// Vault provides an interface for off-host storage of exported reports.
// All operations use io.Reader/io.Writer for streaming so large reports are
// never loaded entirely into memory.
type Vault interface {
	// Name returns the configured vault name.
	Name() string

	// PutReport stores a report file for a run under name.
	// size is the number of bytes that will be read from r.
	// Storing the same run/name twice overwrites it.
	PutReport(runID string, name string, r io.Reader, size int64) error

	// GetReport retrieves a stored report and writes it to w.
	GetReport(runID string, name string, w io.Writer) error

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
