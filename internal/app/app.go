package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fsinv/internal/config"
	"fsinv/internal/database"
	"fsinv/internal/encryption"
	"fsinv/internal/export"
	"fsinv/internal/fs"
	"fsinv/internal/inv"
	"fsinv/internal/vault"
)

// ErrNoDatabase is returned by operations that need stored runs when the
// run store is disabled.
var ErrNoDatabase = errors.New("run store disabled (database type is none)")

// Options adjusts how the app reports to the console.
type Options struct {
	// Quiet keeps log records out of stderr; they still go to the log file.
	Quiet bool
	// Verbose keeps debug records.
	Verbose bool
}

// InvApp is the application layer between the CLI and InventoryService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths and run IDs, and closes everything on Close.
type InvApp struct {
	cfg       *config.Config
	db        inv.Database // nil when persistence is disabled
	vaults    []inv.Vault
	fsmgr     *fs.OSFilesystemManager
	encryptor inv.Encryptor
	exporter  *export.Exporter
	service   *inv.InventoryService
	logger    inv.Logger
	logFile   *os.File
}

// NewInvApp creates a fully wired InvApp from the given config.
// operation names the CLI command being run (e.g. "scan", "history") and
// prefixes the operation ID written to every log line.
// The caller must call Close when done.
func NewInvApp(cfg *config.Config, operation string, opts Options) (*InvApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	vaults, err := vault.NewVaultsFromConfig(cfg.Vaults)
	if err != nil {
		return nil, fmt.Errorf("creating vaults: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if db != nil {
		if err := db.CheckMigrations(); err != nil {
			db.Close()
			return nil, fmt.Errorf("checking migrations: %w", err)
		}
	}

	opID := operation + "-" + time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID, opts.Quiet, opts.Verbose)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	fsmgr := fs.NewOSFilesystemManager()
	svc := inv.NewInventoryService(fsmgr, fs.NewOSAccessReader(), logger, inv.RealClock{}, inv.UUIDGenerator{})

	return &InvApp{
		cfg:       cfg,
		db:        db,
		vaults:    vaults,
		fsmgr:     fsmgr,
		encryptor: enc,
		exporter:  export.NewExporter(enc, logger, lockDir(cfg)),
		service:   svc,
		logger:    logger,
		logFile:   logFile,
	}, nil
}

// lockDir falls back to the temp directory for configs written before
// lock_dir existed.
func lockDir(cfg *config.Config) string {
	if cfg.LockDir != "" {
		return cfg.LockDir
	}
	return filepath.Join(os.TempDir(), "fsinv-locks")
}

// ScanRequest describes one scan invocation. Scan settings come from the
// config; the CLI applies its flags to the config before creating the app.
type ScanRequest struct {
	Path string
	// Output is the entry report path. Empty skips the export.
	Output   string
	Format   export.Format
	Encrypt  bool
	Upload   bool
	Save     bool
	Progress inv.ProgressFunc
}

// ScanResult is the outcome of a scan.
type ScanResult struct {
	Inventory *inv.Inventory
	Written   []string
	Uploaded  int
}

// Scan resolves the root, inventories it and then saves, exports and uploads
// the result as requested. A cancelled scan returns the partial inventory
// with the error and writes nothing.
func (a *InvApp) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	if req.Output != "" {
		if err := export.CheckWritable(req.Output); err != nil {
			return nil, err
		}
	}
	if req.Upload && req.Output == "" {
		return nil, fmt.Errorf("upload requires an output file")
	}
	if req.Upload && len(a.vaults) == 0 {
		return nil, fmt.Errorf("upload requested but no vaults configured")
	}

	root, err := a.fsmgr.Resolve(req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", inv.ErrRootInaccessible, err)
	}

	opts, err := a.scanOptions(root)
	if err != nil {
		return nil, err
	}
	opts.Progress = req.Progress

	inventory, err := a.service.Scan(ctx, root, opts)
	result := &ScanResult{Inventory: inventory}
	if err != nil {
		return result, err
	}

	if req.Save && a.db != nil {
		if err := a.db.SaveInventory(inventory); err != nil {
			return result, fmt.Errorf("saving run: %w", err)
		}
	}

	if req.Output != "" {
		result.Written, err = a.exporter.Export(inventory, req.Output, export.Options{Format: req.Format, Encrypt: req.Encrypt})
		if err != nil {
			return result, fmt.Errorf("exporting run: %w", err)
		}
	}

	if req.Upload {
		result.Uploaded, err = a.Upload(inventory.RunID, result.Written)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// scanOptions builds ScanOptions from the scan config for root.
func (a *InvApp) scanOptions(root *inv.Path) (inv.ScanOptions, error) {
	sc := a.cfg.Scan
	algorithm, err := inv.ParseHashAlgorithm(sc.Algorithm)
	if err != nil {
		return inv.ScanOptions{}, err
	}
	timeout, err := sc.HashTimeoutDuration()
	if err != nil {
		return inv.ScanOptions{}, err
	}
	exclude, err := fs.LoadExcludes(root.String(), sc.Exclude)
	if err != nil {
		return inv.ScanOptions{}, err
	}
	return inv.ScanOptions{
		IncludeFiles:   sc.IncludeFiles,
		FollowSymlinks: sc.FollowSymlinks,
		Exclude:        exclude,
		Algorithm:      algorithm,
		Workers:        sc.Workers,
		HashWorkers:    sc.HashWorkers,
		HashTimeout:    timeout,
		AccessControl:  sc.AccessControl,
	}, nil
}

// Upload copies written report files to every configured vault under the
// run ID. It returns the number of reports stored.
func (a *InvApp) Upload(runID string, paths []string) (int, error) {
	n := 0
	for _, v := range a.vaults {
		for _, path := range paths {
			if err := a.uploadReport(v, runID, path); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func (a *InvApp) uploadReport(v inv.Vault, runID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening report for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat report: %w", err)
	}

	name := filepath.Base(path)
	if err := v.PutReport(runID, name, f, info.Size()); err != nil {
		return fmt.Errorf("uploading %s to vault %s: %w", name, v.Name(), err)
	}
	a.logger.Info("report uploaded", "run", runID, "vault", v.Name(), "name", name, "size", info.Size())
	return nil
}

// History returns the most recent stored runs, newest first.
func (a *InvApp) History(limit int) ([]*inv.Run, error) {
	if a.db == nil {
		return nil, ErrNoDatabase
	}
	return a.db.ListRuns(limit)
}

// Show loads a stored run by ID or unique ID prefix.
func (a *InvApp) Show(idOrPrefix string) (*inv.Inventory, error) {
	if a.db == nil {
		return nil, ErrNoDatabase
	}
	run, err := a.db.FindRun(idOrPrefix)
	if err != nil {
		return nil, err
	}
	return a.db.LoadInventory(run.ID)
}

// Export writes the reports of a stored run.
func (a *InvApp) Export(idOrPrefix, output string, opts export.Options) ([]string, error) {
	inventory, err := a.Show(idOrPrefix)
	if err != nil {
		return nil, err
	}
	return a.exporter.Export(inventory, output, opts)
}

// Diff compares two stored runs.
func (a *InvApp) Diff(oldID, newID string) (*inv.DiffResult, error) {
	old, err := a.Show(oldID)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", oldID, err)
	}
	cur, err := a.Show(newID)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", newID, err)
	}
	return inv.Diff(old, cur), nil
}

// Verify rescans the root of a stored run and compares it with the stored
// inventory. The fresh inventory is saved as a new run when save is set.
func (a *InvApp) Verify(ctx context.Context, idOrPrefix string, save bool, progress inv.ProgressFunc) (*inv.DiffResult, *inv.Inventory, error) {
	stored, err := a.Show(idOrPrefix)
	if err != nil {
		return nil, nil, err
	}
	root, err := a.fsmgr.Resolve(stored.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", inv.ErrRootInaccessible, err)
	}
	opts, err := a.scanOptions(root)
	if err != nil {
		return nil, nil, err
	}
	opts.Progress = progress

	result, current, err := a.service.Verify(ctx, stored, opts)
	if err != nil {
		return nil, current, err
	}
	if save {
		if err := a.db.SaveInventory(current); err != nil {
			return result, current, fmt.Errorf("saving run: %w", err)
		}
	}
	return result, current, nil
}

// Decrypt unlocks the private key with passphrase and decrypts the report
// at path into output.
func (a *InvApp) Decrypt(path, output, passphrase string) error {
	if !a.encryptor.IsConfigured() {
		return fmt.Errorf("encryption keys not configured: run 'fsinv config keys' first")
	}
	dec, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return err
	}

	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening encrypted report: %w", err)
	}
	defer in.Close()

	if err := export.CheckWritable(output); err != nil {
		return err
	}
	out, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	if err := dec.Decrypt(in, out); err != nil {
		out.Close()
		os.Remove(output)
		return fmt.Errorf("decrypting %s: %w", path, err)
	}
	return out.Close()
}

// Close closes the database and the log file.
func (a *InvApp) Close() error {
	var firstErr error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
