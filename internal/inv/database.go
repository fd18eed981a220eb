package inv

import "time"

// Run is the stored summary of one inventory run.
type Run struct {
	ID           string
	Root         string
	Algorithm    HashAlgorithm
	IncludeFiles bool
	Status       RunStatus
	StartedAt    time.Time
	FinishedAt   time.Time
	EntryCount   int64
	ErrorCount   int64
}

// Database provides an interface for storing finished inventories.
type Database interface {
	// SaveInventory stores a run with all of its entries, errors and access
	// records in one transaction.
	SaveInventory(inv *Inventory) error

	// FindRun returns the run whose ID equals or uniquely starts with
	// idOrPrefix. Returns ErrRunNotFound when nothing matches.
	FindRun(idOrPrefix string) (*Run, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*Run, error)

	// LoadInventory reads a stored run back, entries in id order.
	LoadInventory(runID string) (*Inventory, error)

	// CheckMigrations reports an error when the schema is behind the
	// embedded migrations.
	CheckMigrations() error

	// Close closes the database connection.
	Close() error
}
