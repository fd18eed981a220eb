package database

import (
	"fmt"
	"os"
	"path/filepath"

	"fsinv/internal/config"
	"fsinv/internal/inv"
)

// DatabaseFileName is the run store file inside the configured data_dir.
const DatabaseFileName = "fsinv.db"

// NewDatabaseFromConfig creates a Database implementation based on the database config type.
// Type "none" disables persistence and returns a nil Database.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (inv.Database, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, DatabaseFileName))
	case "memory":
		return NewSQLiteDatabase(":memory:")
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
