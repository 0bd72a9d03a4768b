package excel

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"sheetflow/domain/sheet"
	"sheetflow/ports"

	"github.com/xuri/excelize/v2"
)

// Source streams an XLSX workbook. Values come from the excelize row
// iterator; type, style and formula are looked up per non-empty cell.
//
// Memory: those lookups make excelize parse the worksheet part once and keep
// it for the life of the file, so a sheet costs memory in proportion to its
// size even though rows are produced on demand. Records built from the rows
// are never retained.
type Source struct {
	file    *excelize.File
	formats map[int]string // style ID to number format
}

func newSource(f *excelize.File) *Source {
	return &Source{file: f, formats: make(map[int]string)}
}

func (s *Source) SheetNames() []string { return s.file.GetSheetList() }

// Date1904 reads the workbook date system flag
func (s *Source) Date1904() bool {
	props, err := s.file.GetWorkbookProps()
	if err != nil || props.Date1904 == nil {
		return false
	}
	return *props.Date1904
}

func (s *Source) Close() error { return s.file.Close() }

// Rows streams one sheet. Row numbers count every row from 1, empty ones included.
func (s *Source) Rows(ctx context.Context, sheetName string) iter.Seq2[ports.SourceRow, error] {
	return func(yield func(ports.SourceRow, error) bool) {
		rows, err := s.file.Rows(sheetName)
		if err != nil {
			yield(ports.SourceRow{}, fmt.Errorf("failed to open rows iterator for sheet %s: %w", sheetName, err))
			return
		}
		defer rows.Close()

		number := 0
		for rows.Next() {
			number++
			if err := ctx.Err(); err != nil {
				yield(ports.SourceRow{}, err)
				return
			}
			raw, err := rows.Columns(excelize.Options{RawCellValue: true})
			if err != nil {
				yield(ports.SourceRow{}, fmt.Errorf("failed to read row %d in sheet %s: %w", number, sheetName, err))
				return
			}

			cells := make([]sheet.Cell, len(raw))
			for i, value := range raw {
				if value == "" {
					cells[i] = sheet.NullCell()
					continue
				}
				c, err := s.cell(sheetName, i+1, number, value)
				if err != nil {
					yield(ports.SourceRow{}, err)
					return
				}
				cells[i] = c
			}
			if !yield(ports.SourceRow{Number: number, Cells: cells}, nil) {
				return
			}
		}
		if err := rows.Error(); err != nil {
			yield(ports.SourceRow{}, fmt.Errorf("failed to read sheet %s: %w", sheetName, err))
		}
	}
}

// cell types one raw value using the cell's stored type, style and formula
func (s *Source) cell(sheetName string, col, row int, raw string) (sheet.Cell, error) {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return sheet.Cell{}, err
	}
	cellType, err := s.file.GetCellType(sheetName, ref)
	if err != nil {
		return sheet.Cell{}, fmt.Errorf("failed to read type of %s!%s: %w", sheetName, ref, err)
	}
	format, err := s.format(sheetName, ref)
	if err != nil {
		return sheet.Cell{}, err
	}

	var c sheet.Cell
	switch cellType {
	case excelize.CellTypeBool:
		if b, err := strconv.ParseBool(raw); err == nil {
			c = sheet.BoolCell(b)
		} else {
			c = sheet.TextCell(raw)
		}
	case excelize.CellTypeDate:
		if t, ok := parseISODate(raw); ok {
			c = sheet.InstantCell(t)
		} else {
			c = sheet.TextCell(raw)
		}
	case excelize.CellTypeSharedString:
		c, err = s.sharedString(sheetName, ref, raw)
		if err != nil {
			return sheet.Cell{}, err
		}
	case excelize.CellTypeInlineString, excelize.CellTypeFormula, excelize.CellTypeError:
		// CellTypeFormula is the "str" type: a formula's cached text
		c = sheet.TextCell(raw)
	default:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			c = sheet.NumberCell(n)
		} else {
			c = sheet.TextCell(raw)
		}
	}
	c.Format = format

	formula, err := s.file.GetCellFormula(sheetName, ref)
	if err != nil {
		return sheet.Cell{}, fmt.Errorf("failed to read formula of %s!%s: %w", sheetName, ref, err)
	}
	if formula != "" {
		f := sheet.FormulaCell(formula, &c)
		f.Format = format
		return f, nil
	}
	return c, nil
}

// sharedString keeps rich text runs when the string has more than one
func (s *Source) sharedString(sheetName, ref, raw string) (sheet.Cell, error) {
	runs, err := s.file.GetCellRichText(sheetName, ref)
	if err != nil {
		return sheet.Cell{}, fmt.Errorf("failed to read rich text of %s!%s: %w", sheetName, ref, err)
	}
	if len(runs) < 2 {
		return sheet.TextCell(raw), nil
	}
	texts := make([]string, len(runs))
	for i, r := range runs {
		texts[i] = r.Text
	}
	return sheet.RichTextCell(texts...), nil
}

// format returns the number format of a cell, cached per style
func (s *Source) format(sheetName, ref string) (string, error) {
	styleID, err := s.file.GetCellStyle(sheetName, ref)
	if err != nil {
		return "", fmt.Errorf("failed to read style of %s!%s: %w", sheetName, ref, err)
	}
	if f, ok := s.formats[styleID]; ok {
		return f, nil
	}
	style, err := s.file.GetStyle(styleID)
	if err != nil {
		return "", fmt.Errorf("failed to read style %d: %w", styleID, err)
	}
	f := numFmtOf(style)
	s.formats[styleID] = f
	return f, nil
}

var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseISODate reads an ISO 8601 date cell as a naive timestamp
func parseISODate(raw string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), true
	}
	raw = strings.TrimSuffix(raw, "Z")
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
