package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"fsinv/internal/database/migrations"
	"fsinv/internal/inv"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens the database at path and applies pending migrations.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured
// and migrated.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Run operations

// SaveInventory stores inv in a single transaction. A run ID can only be
// stored once.
func (s *SQLiteDatabase) SaveInventory(inventory *inv.Inventory) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, root, algorithm, include_files, status, started_at, finished_at, entry_count, error_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inventory.RunID, inventory.Root, string(inventory.Algorithm), inventory.IncludeFiles, string(inventory.Status),
		inventory.StartedAt.UTC(), inventory.FinishedAt.UTC(), len(inventory.Entries), len(inventory.Errors),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	entryStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (run_id, id, parent_id, path, parent_path, name, is_dir, mode_type, size,
			created_at, modified_at, accessed_at, extension, base_name, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing entry insert: %w", err)
	}
	defer entryStmt.Close()

	for _, e := range inventory.Entries {
		_, err := entryStmt.ExecContext(ctx,
			inventory.RunID, e.ID, e.ParentID, e.Path, e.ParentPath, e.Name, e.IsDir, uint32(e.Mode.Type()), nullSize(e),
			nullTime(e.CreatedAt), nullTime(e.ModifiedAt), nullTime(e.AccessedAt),
			e.Extension, e.BaseName, e.Hash,
		)
		if err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.Path, err)
		}
	}

	for i, rec := range inventory.Errors {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scan_errors (run_id, seq, path, category, message) VALUES (?, ?, ?, ?, ?)`,
			inventory.RunID, i, rec.Path, string(rec.Category), rec.Message,
		)
		if err != nil {
			return fmt.Errorf("inserting error record: %w", err)
		}
	}

	for i, rec := range inventory.Access {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO access_records (run_id, seq, path, owner, grp, uid, gid, mode) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			inventory.RunID, i, rec.Path, rec.Owner, rec.Group, rec.UID, rec.GID, rec.Mode,
		)
		if err != nil {
			return fmt.Errorf("inserting access record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

const runColumns = `id, root, algorithm, include_files, status, started_at, finished_at, entry_count, error_count`

func scanRun(row interface{ Scan(...any) error }) (*inv.Run, error) {
	var (
		r         inv.Run
		algorithm string
		status    string
	)
	err := row.Scan(&r.ID, &r.Root, &algorithm, &r.IncludeFiles, &status,
		&r.StartedAt, &r.FinishedAt, &r.EntryCount, &r.ErrorCount)
	if err != nil {
		return nil, err
	}
	r.Algorithm = inv.HashAlgorithm(algorithm)
	r.Status = inv.RunStatus(status)
	return &r, nil
}

// FindRun returns the run whose ID equals idOrPrefix, or the single run whose
// ID starts with it.
func (s *SQLiteDatabase) FindRun(idOrPrefix string) (*inv.Run, error) {
	ctx := context.Background()
	if idOrPrefix == "" {
		return nil, fmt.Errorf("%w: empty run id", inv.ErrRunNotFound)
	}

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, idOrPrefix))
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("finding run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(idOrPrefix), idOrPrefix)
	if err != nil {
		return nil, fmt.Errorf("finding run by prefix: %w", err)
	}
	defer rows.Close()

	var matches []*inv.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("reading run: %w", err)
		}
		matches = append(matches, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("finding run by prefix: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", inv.ErrRunNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", idOrPrefix)
	}
}

// ListRuns returns up to limit runs, newest first. A limit <= 0 returns all runs.
func (s *SQLiteDatabase) ListRuns(limit int) ([]*inv.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*inv.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("reading run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// LoadInventory reads a stored run with its entries, errors and access records.
func (s *SQLiteDatabase) LoadInventory(runID string) (*inv.Inventory, error) {
	run, err := s.FindRun(runID)
	if err != nil {
		return nil, err
	}

	result := &inv.Inventory{
		RunID:        run.ID,
		Root:         run.Root,
		IncludeFiles: run.IncludeFiles,
		Algorithm:    run.Algorithm,
		Status:       run.Status,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
	}

	if result.Entries, err = s.loadEntries(run.ID); err != nil {
		return nil, err
	}
	if result.Errors, err = s.loadErrors(run.ID); err != nil {
		return nil, err
	}
	if result.Access, err = s.loadAccess(run.ID); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteDatabase) loadEntries(runID string) ([]*inv.Entry, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT id, parent_id, path, parent_path, name, is_dir, mode_type, size,
			created_at, modified_at, accessed_at, extension, base_name, hash
		FROM entries WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading entries: %w", err)
	}
	defer rows.Close()

	var entries []*inv.Entry
	for rows.Next() {
		var (
			e                           inv.Entry
			modeType                    uint32
			size                        sql.NullInt64
			created, modified, accessed sql.NullTime
		)
		err := rows.Scan(&e.ID, &e.ParentID, &e.Path, &e.ParentPath, &e.Name, &e.IsDir, &modeType, &size,
			&created, &modified, &accessed, &e.Extension, &e.BaseName, &e.Hash)
		if err != nil {
			return nil, fmt.Errorf("reading entry: %w", err)
		}
		e.Mode = fs.FileMode(modeType).Type()
		e.Size = size.Int64
		e.CreatedAt = created.Time
		e.ModifiedAt = modified.Time
		e.AccessedAt = accessed.Time
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteDatabase) loadErrors(runID string) ([]*inv.ErrorRecord, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT path, category, message FROM scan_errors WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading errors: %w", err)
	}
	defer rows.Close()

	var records []*inv.ErrorRecord
	for rows.Next() {
		var (
			rec      inv.ErrorRecord
			category string
		)
		if err := rows.Scan(&rec.Path, &category, &rec.Message); err != nil {
			return nil, fmt.Errorf("reading error record: %w", err)
		}
		rec.Category = inv.Category(category)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading errors: %w", err)
	}
	return records, nil
}

func (s *SQLiteDatabase) loadAccess(runID string) ([]*inv.AccessRecord, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT path, owner, grp, uid, gid, mode FROM access_records WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading access records: %w", err)
	}
	defer rows.Close()

	var records []*inv.AccessRecord
	for rows.Next() {
		var rec inv.AccessRecord
		if err := rows.Scan(&rec.Path, &rec.Owner, &rec.Group, &rec.UID, &rec.GID, &rec.Mode); err != nil {
			return nil, fmt.Errorf("reading access record: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading access records: %w", err)
	}
	return records, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// nullSize stores directory sizes as NULL.
func nullSize(e *inv.Entry) sql.NullInt64 {
	if e.IsDir {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: e.Size, Valid: true}
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements inv.Database interface
var _ inv.Database = (*SQLiteDatabase)(nil)
