// Package materialize turns a cell stream into a lazy sequence of records.
package materialize

import (
	"context"
	"iter"
	"strings"
	"sync/atomic"

	"sheetflow/domain/core"
	"sheetflow/domain/sheet"
	"sheetflow/internal"
	"sheetflow/internal/normalize"
	"sheetflow/internal/tzclock"
	"sheetflow/ports"
)

type state int

const (
	seekingHeader state = iota
	emitting
)

// Materializer reads one cell source once, yielding a record per data row
type Materializer struct {
	source     ports.CellSource
	opts       sheet.ReadOptions
	normalizer *normalize.Normalizer
	trimCols   map[string]struct{}
	arrayCols  map[string]struct{}
	consumed   atomic.Bool
	logger     *internal.Logger
}

// New validates options and prepares a materializer. An unresolvable time
// zone fails here, before anything is read.
func New(source ports.CellSource, opts sheet.ReadOptions, logger *internal.Logger) (*Materializer, error) {
	opts = opts.WithDefaults()
	if opts.TimeZone != "" {
		if _, err := tzclock.Default.Location(opts.TimeZone); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Materializer{
		source:     source,
		opts:       opts,
		normalizer: normalize.New(opts),
		trimCols:   toSet(opts.TrimTextColumns),
		arrayCols:  toSet(opts.ArrayColumns),
		logger:     logger.Named("Materializer"),
	}, nil
}

// Rows returns the record sequence. It may be ranged over once; later
// calls yield ErrSequenceConsumed.
func (m *Materializer) Rows(ctx context.Context) iter.Seq2[*sheet.Record, error] {
	return func(yield func(*sheet.Record, error) bool) {
		if !m.consumed.CompareAndSwap(false, true) {
			yield(nil, core.ErrSequenceConsumed)
			return
		}

		for _, name := range m.sheets() {
			if !m.readSheet(ctx, name, yield) {
				return
			}
		}
	}
}

// sheets lists the sheets to read. A sheet filter that matches nothing yields no rows.
func (m *Materializer) sheets() []string {
	names := m.source.SheetNames()
	if m.opts.SheetName == "" {
		return names
	}
	for _, name := range names {
		if name == m.opts.SheetName {
			return []string{name}
		}
	}
	m.logger.Warn("sheet %q not found among %d sheets", m.opts.SheetName, len(names))
	return nil
}

// readSheet streams one sheet; it returns false when the consumer stopped or an error was yielded
func (m *Materializer) readSheet(ctx context.Context, name string, yield func(*sheet.Record, error) bool) bool {
	var (
		st      = seekingHeader
		header  []string
		emitted int
	)
	m.logger.Debug("reading sheet %q, header on row %d", name, m.opts.HeaderRowNumber)

	for row, err := range m.source.Rows(ctx, name) {
		if err != nil {
			yield(nil, err)
			return false
		}
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return false
		}

		if m.opts.SkipEmptyRows && isBlankRow(row.Cells) {
			continue
		}

		switch st {
		case seekingHeader:
			if row.Number != m.opts.HeaderRowNumber {
				continue
			}
			header = resolveHeader(row.Cells, m.opts)
			st = emitting
			m.logger.Trace("sheet %q header resolved: %s", name, strings.Join(header, ", "))
		case emitting:
			record, err := m.buildRecord(header, row)
			if err != nil {
				yield(nil, err)
				return false
			}
			emitted++
			if !yield(record, nil) {
				return false
			}
		}
	}

	if st == seekingHeader {
		m.logger.Warn("sheet %q has no header on row %d, no rows emitted", name, m.opts.HeaderRowNumber)
	}
	m.logger.Debug("sheet %q done, %d rows emitted", name, emitted)
	return true
}

func (m *Materializer) buildRecord(header []string, row ports.SourceRow) (*sheet.Record, error) {
	record := sheet.NewRecord(len(header))
	for i, key := range header {
		v, err := m.normalizer.Normalize(row.Cell(i))
		if err != nil {
			return nil, err
		}
		if s, ok := v.AsText(); ok && m.trims(key) {
			v = sheet.Text(strings.TrimSpace(s))
		}
		if _, ok := m.arrayCols[key]; ok {
			v = splitArray(v, m.opts)
		}
		record.Set(key, v)
	}
	return record, nil
}

func (m *Materializer) trims(key string) bool {
	if m.opts.TrimTextValues {
		return true
	}
	_, ok := m.trimCols[key]
	return ok
}

func isBlankRow(cells []sheet.Cell) bool {
	for _, c := range cells {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}
