package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"sheetflow/domain/core"
	"sheetflow/domain/sheet"
	apperrors "sheetflow/internal/errors"
	"sheetflow/ports"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// database is the part of *sqlx.DB the repository needs
type database interface {
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// SheetRow is one persisted record
type SheetRow struct {
	RunID    string         `db:"run_id"`
	RowIndex int            `db:"row_index"`
	Data     types.JSONText `db:"data"`
}

// RowRepositoryImpl implements RowRepository for PostgreSQL, storing each row as JSONB
type RowRepositoryImpl struct {
	db    database
	table string
}

// NewRowRepository creates a new PostgreSQL row repository writing to table
func NewRowRepository(db *sqlx.DB, table string) ports.RowRepository {
	return newRowRepository(db, table)
}

func newRowRepository(db database, table string) *RowRepositoryImpl {
	return &RowRepositoryImpl{db: db, table: pq.QuoteIdentifier(table)}
}

// Insert stores row at index within the run. Re-inserting the same position is a no-op.
func (r *RowRepositoryImpl) Insert(ctx context.Context, runID core.RunID, index int, row *sheet.Record) error {
	data, err := json.Marshal(row)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode row")
	}

	_, err = r.db.NamedExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (run_id, row_index, data, loaded_at)
		VALUES (:run_id, :row_index, :data, NOW())
		ON CONFLICT (run_id, row_index) DO NOTHING
	`, r.table), SheetRow{RunID: runID.String(), RowIndex: index, Data: types.JSONText(data)})
	if err != nil {
		return databaseError(fmt.Sprintf("failed to insert row %d", index), err)
	}
	return nil
}

// CountRun returns how many rows a run stored
func (r *RowRepositoryImpl) CountRun(ctx context.Context, runID core.RunID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE run_id = $1
	`, r.table), runID.String())
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, databaseError("failed to count rows", err)
	}
	return count, nil
}

// databaseError keeps the Postgres condition name in the message when there is one
func databaseError(message string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		message = fmt.Sprintf("%s (%s)", message, pqErr.Code.Name())
	}
	return apperrors.DatabaseError(message, err)
}
