package sheet

import (
	"strings"
	"time"
)

// CellKind tags the raw value carried by a Cell
type CellKind uint8

const (
	CellNull CellKind = iota
	CellText
	CellNumber
	CellBoolean
	CellInstant
	CellFormula
	CellRichText
)

// Cell is one raw cell as produced by a cell-stream source.
// Cells are consumed once and never mutated.
type Cell struct {
	Kind    CellKind
	Text    string
	Number  float64
	Bool    bool
	Instant time.Time // naive: wall-clock fields stored as UTC
	Runs    []string  // rich text runs
	Formula string
	Result  *Cell // cached formula result, nil when absent
	Format  string
}

// Constructors for raw cells
func NullCell() Cell            { return Cell{Kind: CellNull} }
func TextCell(s string) Cell    { return Cell{Kind: CellText, Text: s} }
func NumberCell(n float64) Cell { return Cell{Kind: CellNumber, Number: n} }
func FormattedNumberCell(n float64, format string) Cell {
	return Cell{Kind: CellNumber, Number: n, Format: format}
}
func BoolCell(b bool) Cell             { return Cell{Kind: CellBoolean, Bool: b} }
func InstantCell(t time.Time) Cell     { return Cell{Kind: CellInstant, Instant: t} }
func RichTextCell(runs ...string) Cell { return Cell{Kind: CellRichText, Runs: runs} }

// FormulaCell builds a formula cell; result may be nil when no cached value exists
func FormulaCell(expr string, result *Cell) Cell {
	return Cell{Kind: CellFormula, Formula: expr, Result: result}
}

// PlainText flattens rich text runs into one string
func (c Cell) PlainText() string {
	if c.Kind == CellRichText {
		return strings.Join(c.Runs, "")
	}
	return c.Text
}

// IsBlank reports whether the cell holds nothing: null, empty text,
// empty rich text, or a formula whose cached result is blank.
func (c Cell) IsBlank() bool {
	switch c.Kind {
	case CellNull:
		return true
	case CellText, CellRichText:
		return c.PlainText() == ""
	case CellFormula:
		return c.Result == nil || c.Result.IsBlank()
	}
	return false
}
