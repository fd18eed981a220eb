package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fsinv/internal/inv"
)

// FileSystemVault stores reports as files below a root directory, typically
// a mounted backup disk or network share:
//
//	<root>/
//	  reports/
//	    <runID>/
//	      <report name>
type FileSystemVault struct {
	name       string
	root       string
	reportsDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	dir := filepath.Join(root, reportsDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}

	return &FileSystemVault{
		name:       name,
		root:       root,
		reportsDir: dir,
	}, nil
}

func (v *FileSystemVault) Name() string { return v.name }

// PutReport stores a report atomically; readers never see a partial file.
func (v *FileSystemVault) PutReport(runID, name string, r io.Reader, size int64) error {
	if err := checkReportKey(runID, name); err != nil {
		return err
	}
	runDir := filepath.Join(v.reportsDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	return v.writeFile(filepath.Join(runDir, name), r, size)
}

// GetReport writes a stored report to w.
func (v *FileSystemVault) GetReport(runID, name string, w io.Writer) error {
	if err := checkReportKey(runID, name); err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(v.reportsDir, runID, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s/%s", inv.ErrReportNotFound, runID, name)
		}
		return fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the reports directory exists and is writable.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.reportsDir)
	if err != nil {
		return fmt.Errorf("vault directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault path is not a directory: %s", v.reportsDir)
	}

	tmp, err := os.CreateTemp(v.reportsDir, ".writable-*")
	if err != nil {
		return fmt.Errorf("vault directory not writable: %w", err)
	}
	tmp.Close()
	return os.Remove(tmp.Name())
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemVault implements inv.Vault interface
var _ inv.Vault = (*FileSystemVault)(nil)
