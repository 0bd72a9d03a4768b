// Package writer emits a record sequence to a row sink.
package writer

import (
	"context"
	"iter"
	"strings"

	"sheetflow/domain/core"
	"sheetflow/domain/sheet"
	"sheetflow/internal"
	"sheetflow/internal/tzclock"
	"sheetflow/ports"
)

// Result describes a completed write
type Result struct {
	SheetName string             `json:"sheet_name"`
	Columns   []sheet.ColumnSpec `json:"columns"`
	Rows      int                `json:"rows"`
	Drains    int                `json:"drains"`
}

// Writer resolves the column schema once and streams rows into a sink
type Writer struct {
	sink     ports.RowSink
	opts     sheet.WriteOptions
	dateCols map[string]struct{}
	clock    *tzclock.Clock
	logger   *internal.Logger
}

// New validates options and binds a writer to sink
func New(sink ports.RowSink, opts sheet.WriteOptions, logger *internal.Logger) (*Writer, error) {
	opts = opts.WithDefaults()
	if opts.TimeZone != "" {
		if _, err := tzclock.Default.Location(opts.TimeZone); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	var dateCols map[string]struct{}
	if len(opts.DateColumns) > 0 {
		dateCols = make(map[string]struct{}, len(opts.DateColumns))
		for _, c := range opts.DateColumns {
			dateCols[c] = struct{}{}
		}
	}
	return &Writer{
		sink:     sink,
		opts:     opts,
		dateCols: dateCols,
		clock:    tzclock.Default,
		logger:   logger.Named("RowWriter"),
	}, nil
}

// Write consumes rows once and commits the sink. The first row is read before
// the header is written so the columns can be inferred from it.
func (w *Writer) Write(ctx context.Context, rows iter.Seq2[*sheet.Record, error]) (*Result, error) {
	next, stop := iter.Pull2(rows)
	defer stop()

	row, err, ok := next()
	if ok && err != nil {
		return nil, err
	}
	var first *sheet.Record
	if ok {
		first = row
	}
	columns, err := w.resolveColumns(first)
	if err != nil {
		return nil, err
	}

	if err := w.sink.Begin(w.opts.SheetName, columns); err != nil {
		return nil, core.NewSinkError("begin", err)
	}
	result := &Result{SheetName: w.opts.SheetName, Columns: columns}
	w.logger.Debug("writing sheet %q with %d columns", w.opts.SheetName, len(columns))

	for ok {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		values, err := w.encode(row, columns)
		if err != nil {
			return result, err
		}
		more, err := w.sink.WriteRow(values)
		if err != nil {
			return result, core.NewSinkError("write row", err)
		}
		result.Rows++
		if !more {
			result.Drains++
			if err := w.awaitDrain(ctx); err != nil {
				return result, err
			}
		}

		row, err, ok = next()
		if ok && err != nil {
			return result, err
		}
	}

	if err := w.sink.Commit(); err != nil {
		return result, core.NewSinkError("commit", err)
	}
	w.logger.Debug("sheet %q committed, %d rows, %d drain waits", w.opts.SheetName, result.Rows, result.Drains)
	return result, nil
}

// resolveColumns uses explicit columns when given, else the keys of first
func (w *Writer) resolveColumns(first *sheet.Record) ([]sheet.ColumnSpec, error) {
	if len(w.opts.Columns) > 0 {
		columns := make([]sheet.ColumnSpec, len(w.opts.Columns))
		for i, c := range w.opts.Columns {
			if c.Key == "" {
				c.Key = c.Header
			}
			if c.Header == "" {
				c.Header = c.Key
			}
			columns[i] = c
		}
		return columns, nil
	}
	if first == nil || first.Len() == 0 {
		return nil, core.ErrNoColumnsResolvable
	}
	columns := make([]sheet.ColumnSpec, 0, first.Len())
	for _, key := range first.Keys() {
		columns = append(columns, sheet.ColumnSpec{Header: key, Key: key})
	}
	return columns, nil
}

// encode lays a record out in column order. Missing keys become nil.
func (w *Writer) encode(row *sheet.Record, columns []sheet.ColumnSpec) ([]any, error) {
	values := make([]any, len(columns))
	if row == nil {
		return values, nil
	}
	for i, col := range columns {
		v, ok := row.Get(col.Key)
		if !ok {
			continue
		}
		switch v.Kind() {
		case sheet.KindInstant:
			t, _ := v.AsInstant()
			if w.opts.TimeZone != "" && w.isDateColumn(col.Key) {
				local, err := w.clock.Localize(t, w.opts.TimeZone)
				if err != nil {
					return nil, err
				}
				t = local
			}
			values[i] = t
		case sheet.KindTextList:
			items, _ := v.AsList()
			values[i] = strings.Join(items, w.opts.ArrayDelimiter)
		default:
			values[i] = v.Any()
		}
	}
	return values, nil
}

func (w *Writer) isDateColumn(key string) bool {
	if w.dateCols == nil {
		return true
	}
	_, ok := w.dateCols[key]
	return ok
}

// awaitDrain blocks until the sink has room again, fails, or ctx ends
func (w *Writer) awaitDrain(ctx context.Context) error {
	w.logger.Trace("sink full, waiting for drain")
	select {
	case <-w.sink.Drained():
		return nil
	case <-w.sink.Failed():
		return core.NewSinkError("drain", w.sink.Err())
	case <-ctx.Done():
		return ctx.Err()
	}
}
