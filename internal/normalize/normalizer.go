// Package normalize turns raw cells into typed record values.
package normalize

import (
	"math"
	"time"

	"sheetflow/domain/sheet"
	"sheetflow/internal/tzclock"
)

const (
	msPerDay = 86_400_000

	// No four-digit-year date lies this far from either epoch
	maxSerialDays = 3_000_000
)

var (
	epoch1900 = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	epoch1904 = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Normalizer converts one raw cell into a value under fixed read options
type Normalizer struct {
	ParseDates bool
	Epoch      sheet.Epoch
	Zone       string // empty disables zone reinterpretation
	Clock      *tzclock.Clock
}

// New builds a normalizer from read options, sharing the process-wide clock
func New(opts sheet.ReadOptions) *Normalizer {
	return &Normalizer{
		ParseDates: opts.ParseDates,
		Epoch:      opts.Epoch,
		Zone:       opts.TimeZone,
		Clock:      tzclock.Default,
	}
}

// Normalize converts cell into a value. Only zone failures are returned;
// unusable data falls back to the raw value.
func (n *Normalizer) Normalize(cell sheet.Cell) (sheet.Value, error) {
	switch cell.Kind {
	case sheet.CellNull:
		return sheet.Null(), nil
	case sheet.CellText:
		return sheet.Text(cell.Text), nil
	case sheet.CellRichText:
		return sheet.Text(cell.PlainText()), nil
	case sheet.CellBoolean:
		return sheet.Bool(cell.Bool), nil
	case sheet.CellInstant:
		return n.localInstant(cell.Instant)
	case sheet.CellFormula:
		if cell.Result == nil {
			return sheet.Null(), nil
		}
		result := *cell.Result
		if result.Format == "" {
			result.Format = cell.Format
		}
		return n.Normalize(result)
	case sheet.CellNumber:
		if n.ParseDates && IsDateFormat(cell.Format) {
			if t, ok := n.serialToTime(cell.Number); ok {
				return n.localInstant(t)
			}
		}
		return sheet.Number(cell.Number), nil
	}
	return sheet.Null(), nil
}

// serialToTime converts a date serial into a naive timestamp, rounding to the millisecond
func (n *Normalizer) serialToTime(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return time.Time{}, false
	}
	base := epoch1900
	if n.Epoch == sheet.Epoch1904 {
		base = epoch1904
	}
	if math.Abs(serial) > maxSerialDays {
		return time.Time{}, false
	}
	ms := math.Round(serial * msPerDay)
	days := math.Floor(ms / msPerDay)
	rest := ms - days*msPerDay
	t := base.AddDate(0, 0, int(days)).Add(time.Duration(rest) * time.Millisecond)
	if t.Year() < 1 || t.Year() > 9999 {
		return time.Time{}, false
	}
	return t, true
}

func (n *Normalizer) localInstant(naive time.Time) (sheet.Value, error) {
	if n.Zone == "" {
		return sheet.Instant(naive), nil
	}
	clock := n.Clock
	if clock == nil {
		clock = tzclock.Default
	}
	t, err := clock.Reinterpret(naive, n.Zone)
	if err != nil {
		return sheet.Null(), err
	}
	return sheet.Instant(t), nil
}
