package ports

import (
	"context"

	"sheetflow/domain/core"
	"sheetflow/domain/sheet"
)

// RowRepository persists materialized rows under the run that loaded them
type RowRepository interface {
	Insert(ctx context.Context, runID core.RunID, index int, row *sheet.Record) error
	CountRun(ctx context.Context, runID core.RunID) (int, error)
}
