package database

import (
	"os"
	"path/filepath"
	"testing"

	"fsinv/internal/config"
)

func TestNewDatabaseFromConfig(t *testing.T) {
	t.Run("memory database", func(t *testing.T) {
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() unexpected error: %v", err)
		}
		if got == nil {
			t.Fatal("NewDatabaseFromConfig() returned nil")
		}
		got.Close()
	})

	t.Run("sqlite database creates data dir", func(t *testing.T) {
		dataDir := filepath.Join(t.TempDir(), "nested", "data")
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "sqlite", DataDir: dataDir})
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if _, err := os.Stat(filepath.Join(dataDir, DatabaseFileName)); err != nil {
			t.Errorf("database file not created: %v", err)
		}
		if err := got.(*SQLiteDatabase).CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
	})

	t.Run("none disables persistence", func(t *testing.T) {
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "none"})
		if err != nil || got != nil {
			t.Errorf("NewDatabaseFromConfig(none) = %v, %v; want nil, nil", got, err)
		}
	})

	t.Run("sqlite without data dir", func(t *testing.T) {
		if _, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "sqlite"}); err == nil {
			t.Error("NewDatabaseFromConfig() expected error for missing data_dir")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "postgres"}); err == nil {
			t.Error("NewDatabaseFromConfig() expected error for unknown type")
		}
	})
}
