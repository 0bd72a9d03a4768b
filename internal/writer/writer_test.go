package writer

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"sheetflow/domain/core"
	"sheetflow/domain/sheet"
	"sheetflow/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSink records calls and asks for a drain every highWater rows
type fakeSink struct {
	mu         sync.Mutex
	highWater  int
	neverDrain bool
	failOnFull error
	writeErr   error

	sheetName string
	columns   []sheet.ColumnSpec
	rows      [][]any
	committed bool
	events    *[]string

	drained chan struct{}
	failed  chan struct{}
	err     error
}

func newFakeSink() *fakeSink {
	return &fakeSink{failed: make(chan struct{})}
}

func (s *fakeSink) note(e string) {
	if s.events != nil {
		*s.events = append(*s.events, e)
	}
}

func (s *fakeSink) Begin(sheetName string, columns []sheet.ColumnSpec) error {
	s.note("begin")
	s.sheetName, s.columns = sheetName, columns
	return nil
}

func (s *fakeSink) WriteRow(values []any) (bool, error) {
	s.note("write")
	if s.writeErr != nil {
		return false, s.writeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, values)
	if s.highWater == 0 || len(s.rows)%s.highWater != 0 {
		return true, nil
	}

	ch := make(chan struct{})
	s.drained = ch
	switch {
	case s.failOnFull != nil:
		s.err = s.failOnFull
		close(s.failed)
	case !s.neverDrain:
		go func() {
			time.Sleep(time.Millisecond)
			close(ch)
		}()
	}
	return false, nil
}

func (s *fakeSink) Drained() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drained
}

func (s *fakeSink) Failed() <-chan struct{} { return s.failed }

func (s *fakeSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSink) Commit() error {
	s.note("commit")
	s.committed = true
	return nil
}

func records(rs ...*sheet.Record) iter.Seq2[*sheet.Record, error] {
	return func(yield func(*sheet.Record, error) bool) {
		for _, r := range rs {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func quietLogger() *internal.Logger { return internal.NewLogger(internal.LogLevelError) }

func mustNew(t *testing.T, sink *fakeSink, opts sheet.WriteOptions) *Writer {
	t.Helper()
	w, err := New(sink, opts, quietLogger())
	require.NoError(t, err)
	return w
}

func TestWriteInfersColumnsFromFirstRow(t *testing.T) {
	sink := newFakeSink()
	w := mustNew(t, sink, sheet.WriteOptions{})

	result, err := w.Write(context.Background(), records(
		sheet.RecordOf("id", 1, "name", "widget", "active", true),
		sheet.RecordOf("name", "gadget", "id", 2, "extra", "ignored"),
	))

	require.NoError(t, err)
	assert.Equal(t, "Sheet1", sink.sheetName)
	assert.Equal(t, []sheet.ColumnSpec{
		{Header: "id", Key: "id"},
		{Header: "name", Key: "name"},
		{Header: "active", Key: "active"},
	}, sink.columns)
	assert.Equal(t, [][]any{
		{1.0, "widget", true},
		{2.0, "gadget", nil},
	}, sink.rows)
	assert.True(t, sink.committed)
	assert.Equal(t, 2, result.Rows)
	assert.Zero(t, result.Drains)
}

func TestWriteExplicitColumns(t *testing.T) {
	sink := newFakeSink()
	w := mustNew(t, sink, sheet.WriteOptions{
		SheetName: "Export",
		Columns: []sheet.ColumnSpec{
			{Header: "Name", Key: "name", Width: 30},
			{Key: "missing"},
			{Header: "id"},
		},
	})

	_, err := w.Write(context.Background(), records(sheet.RecordOf("id", 7, "name", "widget")))

	require.NoError(t, err)
	assert.Equal(t, "Export", sink.sheetName)
	assert.Equal(t, []sheet.ColumnSpec{
		{Header: "Name", Key: "name", Width: 30},
		{Header: "missing", Key: "missing"},
		{Header: "id", Key: "id"},
	}, sink.columns)
	assert.Equal(t, [][]any{{"widget", nil, 7.0}}, sink.rows)
}

func TestWriteWithoutResolvableColumns(t *testing.T) {
	events := []string{}
	sink := newFakeSink()
	sink.events = &events

	_, err := mustNew(t, sink, sheet.WriteOptions{}).Write(context.Background(), records())
	assert.ErrorIs(t, err, core.ErrNoColumnsResolvable)
	assert.Empty(t, events, "nothing reaches the sink")

	_, err = mustNew(t, sink, sheet.WriteOptions{}).Write(context.Background(), records(sheet.NewRecord(0)))
	assert.ErrorIs(t, err, core.ErrNoColumnsResolvable)
}

func TestWriteEmptySequenceWithExplicitColumns(t *testing.T) {
	sink := newFakeSink()
	w := mustNew(t, sink, sheet.WriteOptions{Columns: []sheet.ColumnSpec{{Header: "id", Key: "id"}}})

	result, err := w.Write(context.Background(), records())

	require.NoError(t, err)
	assert.Zero(t, result.Rows)
	assert.True(t, sink.committed)
	assert.Len(t, sink.columns, 1)
}

func TestWriteLocalizesDates(t *testing.T) {
	instant := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	naiveNY := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	row := func() *sheet.Record { return sheet.RecordOf("created", instant, "shipped", instant) }

	sink := newFakeSink()
	_, err := mustNew(t, sink, sheet.WriteOptions{TimeZone: "America/New_York"}).
		Write(context.Background(), records(row()))
	require.NoError(t, err)
	assert.Equal(t, []any{naiveNY, naiveNY}, sink.rows[0])

	sink = newFakeSink()
	_, err = mustNew(t, sink, sheet.WriteOptions{TimeZone: "America/New_York", DateColumns: []string{"shipped"}}).
		Write(context.Background(), records(row()))
	require.NoError(t, err)
	assert.Equal(t, []any{instant, naiveNY}, sink.rows[0])

	sink = newFakeSink()
	_, err = mustNew(t, sink, sheet.WriteOptions{}).Write(context.Background(), records(row()))
	require.NoError(t, err)
	assert.Equal(t, []any{instant, instant}, sink.rows[0])
}

func TestWriteJoinsLists(t *testing.T) {
	sink := newFakeSink()
	_, err := mustNew(t, sink, sheet.WriteOptions{ArrayDelimiter: ";"}).
		Write(context.Background(), records(sheet.RecordOf("tags", []string{"a", "b"}, "none", []string{})))

	require.NoError(t, err)
	assert.Equal(t, []any{"a;b", ""}, sink.rows[0])
}

func TestWriteWaitsForDrain(t *testing.T) {
	sink := newFakeSink()
	sink.highWater = 2

	rows := make([]*sheet.Record, 5)
	for i := range rows {
		rows[i] = sheet.RecordOf("n", i)
	}
	result, err := mustNew(t, sink, sheet.WriteOptions{}).Write(context.Background(), records(rows...))

	require.NoError(t, err)
	assert.Equal(t, 5, result.Rows)
	assert.Equal(t, 2, result.Drains)
	assert.Len(t, sink.rows, 5)
	assert.True(t, sink.committed)
}

func TestWriteSinkFailureDuringDrain(t *testing.T) {
	diskFull := errors.New("disk full")
	sink := newFakeSink()
	sink.highWater = 1
	sink.failOnFull = diskFull

	result, err := mustNew(t, sink, sheet.WriteOptions{}).
		Write(context.Background(), records(sheet.RecordOf("n", 1), sheet.RecordOf("n", 2)))

	assert.ErrorIs(t, err, core.ErrSinkFailure)
	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, 1, result.Rows)
	assert.False(t, sink.committed)
}

func TestWriteRowError(t *testing.T) {
	rejected := errors.New("rejected")
	sink := newFakeSink()
	sink.writeErr = rejected

	_, err := mustNew(t, sink, sheet.WriteOptions{}).Write(context.Background(), records(sheet.RecordOf("n", 1)))

	assert.ErrorIs(t, err, core.ErrSinkFailure)
	assert.ErrorIs(t, err, rejected)
	assert.False(t, sink.committed)
}

func TestWriteCancelledWhileWaiting(t *testing.T) {
	sink := newFakeSink()
	sink.highWater = 1
	sink.neverDrain = true

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := mustNew(t, sink, sheet.WriteOptions{}).Write(ctx, records(sheet.RecordOf("n", 1), sheet.RecordOf("n", 2)))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, sink.committed)
}

func TestWriteSourceError(t *testing.T) {
	broken := errors.New("broken source")
	rows := func(yield func(*sheet.Record, error) bool) {
		if !yield(sheet.RecordOf("n", 1), nil) {
			return
		}
		yield(nil, broken)
	}
	sink := newFakeSink()

	result, err := mustNew(t, sink, sheet.WriteOptions{}).Write(context.Background(), rows)

	assert.ErrorIs(t, err, broken)
	assert.Equal(t, 1, result.Rows)
	assert.False(t, sink.committed)
}

func TestWriteReadsOneRowAhead(t *testing.T) {
	events := []string{}
	sink := newFakeSink()
	sink.events = &events
	rows := func(yield func(*sheet.Record, error) bool) {
		for i := 0; i < 2; i++ {
			events = append(events, "pull")
			if !yield(sheet.RecordOf("n", i), nil) {
				return
			}
		}
	}

	_, err := mustNew(t, sink, sheet.WriteOptions{}).Write(context.Background(), rows)

	require.NoError(t, err)
	assert.Equal(t, []string{"pull", "begin", "write", "pull", "write", "commit"}, events)
}

func TestNewRejectsUnknownZone(t *testing.T) {
	_, err := New(newFakeSink(), sheet.WriteOptions{TimeZone: "Mars/Olympus"}, quietLogger())
	assert.ErrorIs(t, err, core.ErrInvalidTimeZone)
}
