package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// openTestDB opens an in-memory SQLite database pinned to one connection.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	for _, table := range []string{"runs", "entries", "scan_errors", "access_records", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheckDBMigrationStatus(t *testing.T) {
	t.Run("fresh database needs migration", func(t *testing.T) {
		db := openTestDB(t)
		err := CheckDBMigrationStatus(db)
		if err == nil || err.Error() != "database has no schema version (needs migration)" {
			t.Errorf("CheckDBMigrationStatus() error = %v, want needs migration", err)
		}
	})

	t.Run("migrated database is current", func(t *testing.T) {
		db := openTestDB(t)
		if err := MigrateUp(db); err != nil {
			t.Fatalf("MigrateUp() failed: %v", err)
		}
		if err := MigrateUp(db); err != nil {
			t.Fatalf("second MigrateUp() failed: %v", err)
		}
		if err := CheckDBMigrationStatus(db); err != nil {
			t.Errorf("CheckDBMigrationStatus() error = %v", err)
		}

		st, err := ReadStatus(db)
		if err != nil {
			t.Fatalf("ReadStatus() error = %v", err)
		}
		if st.Current != 1 || st.Latest != 1 || st.Dirty {
			t.Errorf("ReadStatus() = %+v, want version 1 of 1", st)
		}
	})
}

func TestSchema_EntriesRequireRun(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec(`
		INSERT INTO entries (run_id, id, parent_id, path, parent_path, name, is_dir, size)
		VALUES ('missing-run', 1, 0, '/r', '/', 'r', 1, 0)
	`)
	if err == nil {
		t.Error("Expected foreign key constraint violation, but insert succeeded")
	}
}

func TestSchema_EntryIDUniquePerRun(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO runs (id, root, include_files, status, started_at, finished_at, entry_count, error_count)
		VALUES ('run-1', '/r', 1, 'complete', datetime('now'), datetime('now'), 1, 0)`); err != nil {
		t.Fatalf("inserting run: %v", err)
	}
	insert := `INSERT INTO entries (run_id, id, parent_id, path, parent_path, name, is_dir, size) VALUES ('run-1', 1, 0, ?, '/', 'r', 1, 0)`
	if _, err := db.Exec(insert, "/r"); err != nil {
		t.Fatalf("inserting first entry: %v", err)
	}
	if _, err := db.Exec(insert, "/other"); err == nil {
		t.Error("Expected primary key violation for duplicate entry id, but insert succeeded")
	}
}
