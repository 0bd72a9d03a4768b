// Package batch runs a handler over a record sequence in fixed-size windows
// with a bounded number of invocations in flight.
package batch

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"sheetflow/domain/core"
	"sheetflow/domain/sheet"
	"sheetflow/internal"

	"golang.org/x/sync/errgroup"
)

// Handler processes one record. The processor never touches row again after
// handing it over.
type Handler func(ctx context.Context, row *sheet.Record) error

type (
	runIDKey    struct{}
	rowIndexKey struct{}
)

// RunIDFromContext returns the run identifier a handler is invoked under
func RunIDFromContext(ctx context.Context) (core.RunID, bool) {
	id, ok := ctx.Value(runIDKey{}).(core.RunID)
	return id, ok
}

// RowIndexFromContext returns the zero-based position of the row a handler is processing
func RowIndexFromContext(ctx context.Context) (int, bool) {
	i, ok := ctx.Value(rowIndexKey{}).(int)
	return i, ok
}

// Processor drives handler invocations window by window
type Processor struct {
	logger *internal.Logger
}

// NewProcessor creates a processor
func NewProcessor(logger *internal.Logger) *Processor {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Processor{logger: logger.Named("BatchProcessor")}
}

// Process consumes rows in order, BatchSize at a time. Within a window at most
// Concurrency invocations run at once and a new one starts as soon as any
// finishes. Windows never overlap. The first handler failure is returned once
// its window has drained and no further rows are read.
func (p *Processor) Process(ctx context.Context, rows iter.Seq2[*sheet.Record, error], handler Handler, opts sheet.ProcessOptions) (*Report, error) {
	if opts.BatchSize <= 0 {
		return nil, core.NewInvalidArgumentError("batch size", "must be greater than zero")
	}
	if opts.Concurrency <= 0 {
		return nil, core.NewInvalidArgumentError("concurrency", "must be greater than zero")
	}
	if handler == nil {
		return nil, core.NewInvalidArgumentError("handler", "must not be nil")
	}

	report := newReport()
	ctx = context.WithValue(ctx, runIDKey{}, report.RunID)
	p.logger.Debug("run %s: batch size %d, concurrency %d", report.RunID, opts.BatchSize, opts.Concurrency)

	window := make([]*sheet.Record, 0, opts.BatchSize)
	var sourceErr error
	for row, err := range rows {
		if err != nil {
			sourceErr = err
			break
		}
		window = append(window, row)
		if len(window) < opts.BatchSize {
			continue
		}
		if err := p.runWindow(ctx, window, handler, opts.Concurrency, report); err != nil {
			return report.finish(), err
		}
		window = make([]*sheet.Record, 0, opts.BatchSize)
	}

	// rows read before a source failure are still handled
	if len(window) > 0 {
		if err := p.runWindow(ctx, window, handler, opts.Concurrency, report); err != nil {
			return report.finish(), errors.Join(err, sourceErr)
		}
	}
	report.finish()
	if sourceErr != nil {
		p.logger.Warn("run %s: source failed after %d rows: %v", report.RunID, report.Rows, sourceErr)
		return report, sourceErr
	}
	p.logger.Info("run %s: %d rows in %d windows (%s)", report.RunID, report.Rows, report.Windows, report.Elapsed)
	return report, nil
}

// runWindow launches one invocation per row in order and waits for all of them
func (p *Processor) runWindow(ctx context.Context, window []*sheet.Record, handler Handler, concurrency int, report *Report) error {
	report.Windows++
	number := report.Windows

	var (
		g         errgroup.Group
		mu        sync.Mutex
		latencies = make([]float64, 0, len(window))
		failed    int
	)
	g.SetLimit(concurrency)

	offset := report.Rows
	for i, row := range window {
		rowCtx := context.WithValue(ctx, rowIndexKey{}, offset+i)
		g.Go(func() error {
			start := time.Now()
			err := handler(rowCtx, row)
			elapsed := float64(time.Since(start)) / float64(time.Millisecond)

			mu.Lock()
			latencies = append(latencies, elapsed)
			if err != nil {
				failed++
			}
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()

	report.record(len(window), failed, latencies)
	p.logger.Trace("run %s: window %d done, %d rows, %d failed", report.RunID, number, len(window), failed)
	if err != nil {
		p.logger.Error("run %s: window %d failed: %v", report.RunID, number, err)
		return core.NewHandlerError(number, err)
	}
	return nil
}
