package ports

import (
	"context"
	"iter"

	"sheetflow/domain/sheet"
)

// CellSource provides rows of raw cells in sheet order, abstracting the spreadsheet codec
type CellSource interface {
	// SheetNames lists sheets in workbook order
	SheetNames() []string

	// Rows streams the rows of one sheet in row order. Each call starts a new pass.
	Rows(ctx context.Context, sheet string) iter.Seq2[SourceRow, error]
}

// SourceRow is one row of a sheet. Cells are indexed by zero-based column;
// the slice may be shorter than the header when trailing cells are absent.
type SourceRow struct {
	Number int // 1-based
	Cells  []sheet.Cell
}

// Cell returns the cell at index, or a null cell when absent
func (r SourceRow) Cell(index int) sheet.Cell {
	if index < 0 || index >= len(r.Cells) {
		return sheet.NullCell()
	}
	return r.Cells[index]
}
