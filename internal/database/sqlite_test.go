package database

import (
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"fsinv/internal/inv"
)

// newTestDB creates a new in-memory database with schema applied.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func sampleInventory(runID string, started time.Time) *inv.Inventory {
	mtime := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	return &inv.Inventory{
		RunID:        runID,
		Root:         "/data",
		IncludeFiles: true,
		Algorithm:    inv.HashSHA256,
		Status:       inv.StatusPartial,
		StartedAt:    started,
		FinishedAt:   started.Add(time.Second),
		Entries: []*inv.Entry{
			{ID: 1, ParentID: 0, Path: "/data", ParentPath: "/", Name: "data", IsDir: true, ModifiedAt: mtime, CreatedAt: mtime},
			{ID: 2, ParentID: 1, Path: "/data/a.txt", ParentPath: "/data", Name: "a.txt", Size: 5,
				ModifiedAt: mtime, CreatedAt: mtime, AccessedAt: mtime.Add(time.Hour), Extension: ".txt", BaseName: "a", Hash: "2cf24dba"},
			{ID: 3, ParentID: 1, Path: "/data/locked", ParentPath: "/data", Name: "locked", Size: 1,
				ModifiedAt: mtime, BaseName: "locked", Hash: inv.HashAccessDenied},
		},
		Errors: []*inv.ErrorRecord{
			{Path: "/data/locked", Category: inv.CategoryHash, Message: "permission denied"},
		},
		Access: []*inv.AccessRecord{
			{Path: "/data", Owner: "root", Group: "wheel", UID: 0, GID: 0, Mode: "drwxr-xr-x"},
		},
	}
}

func TestSQLiteDatabase_SaveAndLoadInventory(t *testing.T) {
	db := newTestDB(t)
	started := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	want := sampleInventory("run-aaaa", started)

	if err := db.SaveInventory(want); err != nil {
		t.Fatalf("SaveInventory() error = %v", err)
	}

	got, err := db.LoadInventory("run-aaaa")
	if err != nil {
		t.Fatalf("LoadInventory() error = %v", err)
	}

	if got.Root != want.Root || got.Algorithm != want.Algorithm || got.Status != want.Status || !got.IncludeFiles {
		t.Errorf("run fields = %+v", got)
	}
	if !got.StartedAt.Equal(want.StartedAt) || !got.FinishedAt.Equal(want.FinishedAt) {
		t.Errorf("timestamps = %v / %v", got.StartedAt, got.FinishedAt)
	}
	if len(got.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(got.Entries))
	}
	for i, e := range got.Entries {
		w := want.Entries[i]
		if e.ID != w.ID || e.ParentID != w.ParentID || e.Path != w.Path || e.IsDir != w.IsDir ||
			e.Size != w.Size || e.Hash != w.Hash || e.Extension != w.Extension || e.BaseName != w.BaseName {
			t.Errorf("entry %d = %+v, want %+v", i, e, w)
		}
		if !e.ModifiedAt.Equal(w.ModifiedAt) || !e.AccessedAt.Equal(w.AccessedAt) || !e.CreatedAt.Equal(w.CreatedAt) {
			t.Errorf("entry %d times = %v %v %v", i, e.CreatedAt, e.ModifiedAt, e.AccessedAt)
		}
	}
	if !got.Entries[2].AccessedAt.IsZero() {
		t.Error("missing access time should load as zero")
	}
	if len(got.Errors) != 1 || got.Errors[0].Category != inv.CategoryHash {
		t.Errorf("errors = %+v", got.Errors)
	}
	if len(got.Access) != 1 || got.Access[0].Group != "wheel" || got.Access[0].Mode != "drwxr-xr-x" {
		t.Errorf("access = %+v", got.Access)
	}
}

func TestSQLiteDatabase_EntrySizeAndType(t *testing.T) {
	db := newTestDB(t)
	inventory := sampleInventory("run-types", time.Now())
	inventory.Entries = append(inventory.Entries, &inv.Entry{
		ID: 4, ParentID: 1, Path: "/data/pipe", ParentPath: "/data", Name: "pipe", Mode: fs.ModeNamedPipe,
	})
	if err := db.SaveInventory(inventory); err != nil {
		t.Fatalf("SaveInventory() error = %v", err)
	}

	var size sql.NullInt64
	err := db.db.QueryRow(`SELECT size FROM entries WHERE run_id = ? AND id = 1`, "run-types").Scan(&size)
	if err != nil {
		t.Fatalf("querying directory size: %v", err)
	}
	if size.Valid {
		t.Errorf("directory size = %d, want NULL", size.Int64)
	}

	got, err := db.LoadInventory("run-types")
	if err != nil {
		t.Fatalf("LoadInventory() error = %v", err)
	}
	if got.Entries[0].Size != 0 {
		t.Errorf("directory Size = %d, want 0", got.Entries[0].Size)
	}
	if pipe := got.Entries[3]; pipe.Mode != fs.ModeNamedPipe || pipe.Regular() {
		t.Errorf("pipe Mode = %v, Regular() = %v", pipe.Mode, pipe.Regular())
	}
	if !got.Entries[1].Regular() {
		t.Error("a.txt should load as a regular file")
	}
}

func TestSQLiteDatabase_SaveInventoryIsWriteOnce(t *testing.T) {
	db := newTestDB(t)
	inventory := sampleInventory("run-1", time.Now())
	if err := db.SaveInventory(inventory); err != nil {
		t.Fatalf("SaveInventory() error = %v", err)
	}
	if err := db.SaveInventory(inventory); err == nil {
		t.Error("SaveInventory() expected error for duplicate run id")
	}

	runs, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].EntryCount != 3 {
		t.Errorf("ListRuns() = %+v, want the first run untouched", runs)
	}
}

func TestSQLiteDatabase_FindRun(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	for i, id := range []string{"7f3a0c1e-aaaa", "7f3b9d2e-bbbb", "c0ffee00-cccc"} {
		if err := db.SaveInventory(sampleInventory(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("SaveInventory(%s) error = %v", id, err)
		}
	}

	tests := []struct {
		name    string
		query   string
		wantID  string
		wantErr error
	}{
		{"exact id", "7f3a0c1e-aaaa", "7f3a0c1e-aaaa", nil},
		{"unique prefix", "c0f", "c0ffee00-cccc", nil},
		{"longer unique prefix", "7f3b", "7f3b9d2e-bbbb", nil},
		{"no match", "dead", "", inv.ErrRunNotFound},
		{"empty", "", "", inv.ErrRunNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := db.FindRun(tt.query)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("FindRun(%q) error = %v, want %v", tt.query, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindRun(%q) error = %v", tt.query, err)
			}
			if run.ID != tt.wantID {
				t.Errorf("FindRun(%q) = %s, want %s", tt.query, run.ID, tt.wantID)
			}
		})
	}

	t.Run("ambiguous prefix", func(t *testing.T) {
		_, err := db.FindRun("7f3")
		if err == nil || errors.Is(err, inv.ErrRunNotFound) {
			t.Errorf("FindRun(7f3) error = %v, want ambiguity error", err)
		}
	})
}

func TestSQLiteDatabase_ListRuns(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		if err := db.SaveInventory(sampleInventory(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveInventory() error = %v", err)
		}
	}

	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-3" || runs[1].ID != "run-2" {
		t.Errorf("ListRuns(2) = %v, want run-3, run-2", runIDs(runs))
	}
	if runs[0].ErrorCount != 1 || runs[0].Algorithm != inv.HashSHA256 {
		t.Errorf("run summary = %+v", runs[0])
	}
}

func TestSQLiteDatabase_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), DatabaseFileName)
	db, err := NewSQLiteDatabase(path)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase() error = %v", err)
	}
	if err := db.SaveInventory(sampleInventory("run-x", time.Now())); err != nil {
		t.Fatalf("SaveInventory() error = %v", err)
	}
	db.Close()

	reopened, err := NewSQLiteDatabase(path)
	if err != nil {
		t.Fatalf("reopening database: %v", err)
	}
	defer reopened.Close()
	if reopened.Path() != path {
		t.Errorf("Path() = %s, want %s", reopened.Path(), path)
	}
	if _, err := reopened.FindRun("run-x"); err != nil {
		t.Errorf("FindRun() after reopen error = %v", err)
	}
}

func runIDs(runs []*inv.Run) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}
