package migration

import (
	"context"
	"fmt"

	"sheetflow/internal/errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the row table the loader writes to
type MigrationRunner struct {
	version string
	table   string
}

// NewRunner creates a new migration runner for table
func NewRunner(table string) *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
		table:   table,
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range r.Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.DatabaseError(fmt.Sprintf("migration %s failed", r.version), err)
		}
	}
	return nil
}

// Statements returns the DDL Run executes, in order
func (r *MigrationRunner) Statements() []string {
	table := pq.QuoteIdentifier(r.table)
	index := pq.QuoteIdentifier(r.table + "_loaded_at_idx")
	return []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id UUID NOT NULL,
			row_index INTEGER NOT NULL,
			data JSONB NOT NULL,
			loaded_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (run_id, row_index)
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (loaded_at)`, index, table),
	}
}
