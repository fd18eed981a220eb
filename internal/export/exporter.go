package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fsinv/internal/inv"
)

// EncryptedSuffix is appended to the name of every encrypted report.
const EncryptedSuffix = ".age"

// Options configures one export.
type Options struct {
	Format  Format
	Encrypt bool
}

// Exporter writes an inventory's reports to disk.
type Exporter struct {
	encryptor inv.Encryptor
	logger    inv.Logger
	lockDir   string
}

// NewExporter creates an Exporter that keeps its lock files in lockDir.
// encryptor may be nil when reports are never encrypted.
func NewExporter(encryptor inv.Encryptor, logger inv.Logger, lockDir string) *Exporter {
	return &Exporter{encryptor: encryptor, logger: logger, lockDir: lockDir}
}

// report is one file produced by an export.
type report struct {
	path   string
	render func(io.Writer) error
}

// Export writes the entry report to outPath, the error report next to it
// and, when access control was collected, the access report. Each file is
// written atomically while holding an exclusive lock, kept in the lock
// directory, for outPath.
// It returns the paths written, entry report first.
//
// Cancelled runs are never exported.
func (x *Exporter) Export(inventory *inv.Inventory, outPath string, opts Options) ([]string, error) {
	if inventory.Status == inv.StatusCancelled {
		return nil, fmt.Errorf("run %s was cancelled; refusing to export a partial tree", inventory.RunID)
	}
	if opts.Encrypt && x.encryptor == nil {
		return nil, errors.New("encryption requested but no encryptor configured")
	}
	if opts.Format == "" {
		opts.Format = FormatCSV
	}
	if err := CheckWritable(outPath); err != nil {
		return nil, err
	}

	reports := []report{
		{outPath, func(w io.Writer) error { return WriteEntries(w, inventory, opts.Format) }},
		{ErrorReportPath(outPath), func(w io.Writer) error { return WriteErrors(w, inventory.Errors, opts.Format) }},
	}
	if inventory.Access != nil {
		reports = append(reports, report{
			AccessReportPath(outPath),
			func(w io.Writer) error { return WriteAccess(w, inventory.Access, opts.Format) },
		})
	}

	if err := os.MkdirAll(x.lockDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	path, err := lockPath(x.lockDir, outPath)
	if err != nil {
		return nil, err
	}
	lock := NewFileLock(path)
	if err := lock.Lock(); err != nil {
		return nil, err
	}
	defer lock.Unlock()

	written := make([]string, 0, len(reports))
	for _, r := range reports {
		path := r.path
		if opts.Encrypt {
			path += EncryptedSuffix
		}
		err := writeAtomic(path, func(w io.Writer) error {
			return x.encode(w, r.render, opts.Encrypt)
		})
		if err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		x.logger.Info("report written", "run", inventory.RunID, "path", path, "encrypted", opts.Encrypt)
		written = append(written, path)
	}
	return written, nil
}

// encode renders a report into w, through the encryptor when requested.
func (x *Exporter) encode(w io.Writer, render func(io.Writer) error, encrypt bool) error {
	if !encrypt {
		return render(w)
	}
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(render(pw))
	}()
	err := x.encryptor.Encrypt(pr, w)
	pr.CloseWithError(err)
	if err != nil {
		return fmt.Errorf("encrypting: %w", err)
	}
	return nil
}

// CheckWritable verifies that a report can be created at outPath: the
// parent directory must exist and accept new files, and outPath must not be
// a directory. Failures wrap inv.ErrOutputUnwritable.
func CheckWritable(outPath string) error {
	if outPath == "" {
		return fmt.Errorf("%w: no output path", inv.ErrOutputUnwritable)
	}
	if info, err := os.Stat(outPath); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", inv.ErrOutputUnwritable, outPath)
	}

	dir := filepath.Dir(outPath)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", inv.ErrOutputUnwritable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", inv.ErrOutputUnwritable, dir)
	}

	tmp, err := os.CreateTemp(dir, ".fsinv-writable-*")
	if err != nil {
		return fmt.Errorf("%w: %v", inv.ErrOutputUnwritable, err)
	}
	tmp.Close()
	os.Remove(tmp.Name())
	return nil
}
