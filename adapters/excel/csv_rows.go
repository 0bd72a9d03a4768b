package excel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"sheetflow/domain/sheet"
	"sheetflow/ports"
)

// Rows streams records of the only sheet. Every field becomes a text cell.
func (s *CSVSource) Rows(ctx context.Context, sheetName string) iter.Seq2[ports.SourceRow, error] {
	return func(yield func(ports.SourceRow, error) bool) {
		if sheetName != csvSheetName {
			return
		}
		if s.read {
			yield(ports.SourceRow{}, errCSVConsumed)
			return
		}
		s.read = true

		for number := 1; ; number++ {
			if err := ctx.Err(); err != nil {
				yield(ports.SourceRow{}, err)
				return
			}
			record, err := s.reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(ports.SourceRow{}, fmt.Errorf("failed to read CSV row %d: %w", number, err))
				return
			}
			cells := make([]sheet.Cell, len(record))
			for i, field := range record {
				cells[i] = sheet.TextCell(field)
			}
			if !yield(ports.SourceRow{Number: number, Cells: cells}, nil) {
				return
			}
		}
	}
}
