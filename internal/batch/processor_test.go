package batch

import (
	"context"
	"errors"
	"iter"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sheetflow/domain/core"
	"sheetflow/domain/sheet"
	"sheetflow/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRows yields n records numbered from 0 and counts how many were pulled
func countingRows(n int, pulled *atomic.Int32) iter.Seq2[*sheet.Record, error] {
	return func(yield func(*sheet.Record, error) bool) {
		for i := 0; i < n; i++ {
			pulled.Add(1)
			if !yield(sheet.RecordOf("n", i), nil) {
				return
			}
		}
	}
}

// rowNumber runs inside handler goroutines, so it cannot fail the test
func rowNumber(row *sheet.Record) int {
	v, _ := row.Get("n")
	n, _ := v.AsNumber()
	return int(n)
}

func newTestProcessor() *Processor {
	return NewProcessor(internal.NewLogger(internal.LogLevelError))
}

func TestProcessRejectsInvalidOptionsWithoutConsuming(t *testing.T) {
	tests := []struct {
		name        string
		batchSize   int
		concurrency int
	}{
		{"zero batch size", 0, 4},
		{"negative batch size", -1, 4},
		{"zero concurrency", 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pulled atomic.Int32
			handled := false
			opts := sheet.ProcessOptions{BatchSize: tt.batchSize, Concurrency: tt.concurrency}

			report, err := newTestProcessor().Process(context.Background(), countingRows(5, &pulled),
				func(context.Context, *sheet.Record) error { handled = true; return nil }, opts)

			assert.ErrorIs(t, err, core.ErrInvalidArgument)
			assert.Nil(t, report)
			assert.Zero(t, pulled.Load())
			assert.False(t, handled)
		})
	}
}

func TestProcessBoundsInFlightInvocations(t *testing.T) {
	var (
		pulled   atomic.Int32
		active   atomic.Int32
		peak     atomic.Int32
		handled  atomic.Int32
		opts     = sheet.ProcessOptions{BatchSize: 10, Concurrency: 3}
		observed = func(n int32) {
			for {
				cur := peak.Load()
				if n <= cur || peak.CompareAndSwap(cur, n) {
					return
				}
			}
		}
	)

	report, err := newTestProcessor().Process(context.Background(), countingRows(25, &pulled),
		func(context.Context, *sheet.Record) error {
			observed(active.Add(1))
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
			handled.Add(1)
			return nil
		}, opts)

	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, int32(25), handled.Load())
	assert.Equal(t, 25, report.Rows)
	assert.Equal(t, 3, report.Windows)
	assert.Zero(t, report.Failed)
}

func TestProcessWindowsDoNotOverlap(t *testing.T) {
	const batchSize = 4
	var (
		pulled    atomic.Int32
		finished  atomic.Int32
		violation atomic.Bool
	)

	_, err := newTestProcessor().Process(context.Background(), countingRows(13, &pulled),
		func(_ context.Context, row *sheet.Record) error {
			n := rowNumber(row)
			window := n / batchSize
			if int(finished.Load()) < window*batchSize {
				violation.Store(true)
			}
			time.Sleep(time.Millisecond)
			finished.Add(1)
			return nil
		}, sheet.ProcessOptions{BatchSize: batchSize, Concurrency: 2})

	require.NoError(t, err)
	assert.False(t, violation.Load(), "a row started before the previous window drained")
	assert.Equal(t, int32(13), finished.Load())
}

func TestProcessSurfacesHandlerFailureAfterWindow(t *testing.T) {
	var (
		pulled  atomic.Int32
		mu      sync.Mutex
		handled []int
		boom    = errors.New("boom")
	)

	report, err := newTestProcessor().Process(context.Background(), countingRows(6, &pulled),
		func(_ context.Context, row *sheet.Record) error {
			n := rowNumber(row)
			if n == 0 {
				return boom
			}
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			handled = append(handled, n)
			mu.Unlock()
			return nil
		}, sheet.ProcessOptions{BatchSize: 2, Concurrency: 2})

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrHandlerFailure)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), pulled.Load(), "later windows are not read")
	assert.Equal(t, []int{1}, handled, "the rest of the failing window still completes")
	require.NotNil(t, report)
	assert.Equal(t, 2, report.Rows)
	assert.Equal(t, 1, report.Failed)
}

func TestProcessSourceErrorAfterBufferedRows(t *testing.T) {
	readErr := errors.New("read failed")
	rows := func(yield func(*sheet.Record, error) bool) {
		for i := 0; i < 3; i++ {
			if !yield(sheet.RecordOf("n", i), nil) {
				return
			}
		}
		yield(nil, readErr)
	}

	var handled atomic.Int32
	report, err := newTestProcessor().Process(context.Background(), rows,
		func(context.Context, *sheet.Record) error { handled.Add(1); return nil },
		sheet.ProcessOptions{BatchSize: 2, Concurrency: 1})

	assert.ErrorIs(t, err, readErr)
	assert.NotErrorIs(t, err, core.ErrHandlerFailure)
	assert.Equal(t, int32(3), handled.Load())
	assert.Equal(t, 2, report.Windows)
}

func TestProcessExposesRunID(t *testing.T) {
	var (
		pulled atomic.Int32
		mu     sync.Mutex
		seen   = map[core.RunID]int{}
	)

	report, err := newTestProcessor().Process(context.Background(), countingRows(5, &pulled),
		func(ctx context.Context, _ *sheet.Record) error {
			id, ok := RunIDFromContext(ctx)
			if !ok {
				return errors.New("no run id")
			}
			mu.Lock()
			seen[id]++
			mu.Unlock()
			return nil
		}, sheet.DefaultProcessOptions())

	require.NoError(t, err)
	assert.Equal(t, map[core.RunID]int{report.RunID: 5}, seen)
}

func TestProcessEmptySequence(t *testing.T) {
	var pulled atomic.Int32
	report, err := newTestProcessor().Process(context.Background(), countingRows(0, &pulled),
		func(context.Context, *sheet.Record) error { return nil }, sheet.DefaultProcessOptions())

	require.NoError(t, err)
	assert.Zero(t, report.Rows)
	assert.Zero(t, report.Windows)
	assert.Equal(t, LatencySummary{}, report.Latency)
}

func TestLatencySummary(t *testing.T) {
	samples := make([]float64, 20)
	for i := range samples {
		samples[i] = float64(i + 1)
	}

	var whole latencyStats
	whole.add(samples)
	s := whole.summary()
	assert.InDelta(t, 10.5, s.Mean, 1e-9)
	assert.InDelta(t, 10.5, s.Median, 1e-9)
	assert.InDelta(t, 19, s.P95, 1e-9)
	assert.InDelta(t, 20, s.Max, 1e-9)
	assert.InDelta(t, 5.9161, s.StdDev, 1e-3)

	// uneven windows merge to the same aggregates
	var windowed latencyStats
	for _, w := range [][]float64{samples[:3], samples[3:4], samples[4:11], samples[11:]} {
		windowed.add(w)
	}
	assert.InDelta(t, s.Mean, windowed.summary().Mean, 1e-9)
	assert.InDelta(t, s.StdDev, windowed.summary().StdDev, 1e-9)
	assert.InDelta(t, s.Median, windowed.summary().Median, 1e-9)
	assert.InDelta(t, s.Max, windowed.summary().Max, 1e-9)

	var single latencyStats
	single.add([]float64{7})
	assert.Equal(t, 7.0, single.summary().P95)
	assert.Zero(t, single.summary().StdDev)

	var empty latencyStats
	empty.add(nil)
	assert.Equal(t, LatencySummary{}, empty.summary())
}

func TestLatencyStatsStayBounded(t *testing.T) {
	var l latencyStats
	window := make([]float64, 100)
	for round := 0; round < 2000; round++ {
		for i := range window {
			window[i] = float64(i % 10)
		}
		l.add(window)
	}

	assert.Equal(t, 200000, l.count)
	assert.Len(t, l.reservoir, reservoirSize)
	assert.LessOrEqual(t, cap(l.reservoir), 2*reservoirSize)

	s := l.summary()
	assert.InDelta(t, 4.5, s.Mean, 1e-9)
	assert.InDelta(t, 9, s.Max, 1e-9)
	assert.InDelta(t, 2.8723, s.StdDev, 1e-3)
	assert.GreaterOrEqual(t, s.P95, 8.0)
	assert.LessOrEqual(t, s.P95, 9.0)
}

func TestProcessReportRetainsBoundedLatencies(t *testing.T) {
	var pulled atomic.Int32
	opts := sheet.DefaultProcessOptions()
	opts.BatchSize = 100
	opts.Concurrency = 4

	report, err := newTestProcessor().Process(context.Background(), countingRows(20000, &pulled),
		func(context.Context, *sheet.Record) error { return nil }, opts)

	require.NoError(t, err)
	assert.Equal(t, 20000, report.Rows)
	assert.Equal(t, 200, report.Windows)
	assert.Equal(t, 20000, report.latency.count)
	assert.Len(t, report.latency.reservoir, reservoirSize)
	assert.GreaterOrEqual(t, report.Latency.Max, report.Latency.Median)
}

func TestProcessExposesRowIndex(t *testing.T) {
	var (
		pulled  atomic.Int32
		mu      sync.Mutex
		indexes = map[int]int{}
	)

	_, err := newTestProcessor().Process(context.Background(), countingRows(7, &pulled),
		func(ctx context.Context, row *sheet.Record) error {
			i, ok := RowIndexFromContext(ctx)
			if !ok {
				return errors.New("no row index")
			}
			mu.Lock()
			indexes[i] = rowNumber(row)
			mu.Unlock()
			return nil
		}, sheet.ProcessOptions{BatchSize: 3, Concurrency: 2})

	require.NoError(t, err)
	require.Len(t, indexes, 7)
	for i, n := range indexes {
		assert.Equal(t, i, n)
	}
}
