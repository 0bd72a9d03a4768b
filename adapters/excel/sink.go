package excel

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"sheetflow/domain/sheet"

	"github.com/xuri/excelize/v2"
)

// dateNumFmt is the builtin "m/d/yy h:mm" format applied to time values
const dateNumFmt = 22

var (
	errNotBegun     = errors.New("sink has not begun a sheet")
	errAlreadyBegun = errors.New("sink already began a sheet")
	errCommitted    = errors.New("sink is already committed")
)

// closedChan is handed out when nothing is pending
var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Sink writes one sheet through an excelize stream writer. Rows are queued
// and written by a background goroutine; WriteRow reports false once
// HighWaterMark rows are pending, and Drained closes when the queue empties.
// A Sink is fed by one goroutine.
type Sink struct {
	out  io.Writer
	opts SinkOptions

	file      *excelize.File
	stream    *excelize.StreamWriter
	dateStyle int
	row       int

	queue chan []any
	done  chan struct{}

	mu        sync.Mutex
	pending   int
	drained   chan struct{}
	committed bool

	failOnce sync.Once
	failed   chan struct{}
	err      error
}

// NewSink creates a sink that writes the finished workbook to out on Commit
func NewSink(out io.Writer, opts SinkOptions) *Sink {
	return &Sink{
		out:    out,
		opts:   opts.withDefaults(),
		failed: make(chan struct{}),
	}
}

// Begin creates the sheet, applies column widths and writes the header row
func (s *Sink) Begin(sheetName string, columns []sheet.ColumnSpec) error {
	if s.file != nil {
		return errAlreadyBegun
	}
	f := excelize.NewFile()
	if sheetName != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheetName); err != nil {
			f.Close()
			return fmt.Errorf("failed to name sheet %q: %w", sheetName, err)
		}
	}
	stream, err := f.NewStreamWriter(sheetName)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to open stream writer: %w", err)
	}
	// widths must precede the first row
	for i, col := range columns {
		if col.Width <= 0 {
			continue
		}
		if err := stream.SetColWidth(i+1, i+1, col.Width); err != nil {
			f.Close()
			return fmt.Errorf("failed to set width of column %q: %w", col.Header, err)
		}
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: dateNumFmt})
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to create date style: %w", err)
	}

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col.Header
	}
	if err := stream.SetRow("A1", header); err != nil {
		f.Close()
		return fmt.Errorf("failed to write header row: %w", err)
	}

	s.file, s.stream, s.dateStyle, s.row = f, stream, dateStyle, 1
	s.queue = make(chan []any, s.opts.HighWaterMark)
	s.done = make(chan struct{})
	go s.run()
	return nil
}

// WriteRow queues values. more is false when the caller should wait on Drained.
func (s *Sink) WriteRow(values []any) (bool, error) {
	if s.file == nil {
		return false, errNotBegun
	}
	if err := s.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.committed {
		s.mu.Unlock()
		return false, errCommitted
	}
	s.pending++
	full := s.pending >= s.opts.HighWaterMark
	if full && s.drained == nil {
		s.drained = make(chan struct{})
	}
	s.mu.Unlock()

	s.queue <- values
	return !full, nil
}

// Drained closes once every queued row has been written
func (s *Sink) Drained() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drained == nil {
		return closedChan
	}
	return s.drained
}

func (s *Sink) Failed() <-chan struct{} { return s.failed }

func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Commit writes out remaining rows and the workbook, then releases it
func (s *Sink) Commit() error {
	if s.file == nil {
		return errNotBegun
	}
	if !s.stop() {
		return errCommitted
	}
	defer s.file.Close()

	if err := s.Err(); err != nil {
		return err
	}
	if err := s.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := s.file.Write(s.out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Close abandons an uncommitted sink
func (s *Sink) Close() error {
	if s.file == nil || !s.stop() {
		return nil
	}
	return s.file.Close()
}

// stop closes the queue and waits for the writer goroutine; false if already stopped
func (s *Sink) stop() bool {
	s.mu.Lock()
	if s.committed {
		s.mu.Unlock()
		return false
	}
	s.committed = true
	s.mu.Unlock()

	close(s.queue)
	<-s.done
	return true
}

func (s *Sink) run() {
	defer close(s.done)
	for values := range s.queue {
		// after a failure the queue is still drained so writers never block
		if s.Err() == nil {
			if err := s.writeRow(values); err != nil {
				s.fail(err)
			}
		}

		s.mu.Lock()
		s.pending--
		if s.pending == 0 && s.drained != nil {
			close(s.drained)
			s.drained = nil
		}
		s.mu.Unlock()
	}
}

func (s *Sink) writeRow(values []any) error {
	s.row++
	ref, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		if t, ok := v.(time.Time); ok {
			cells[i] = excelize.Cell{StyleID: s.dateStyle, Value: t}
			continue
		}
		cells[i] = v
	}
	if err := s.stream.SetRow(ref, cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", s.row, err)
	}
	return nil
}

func (s *Sink) fail(err error) {
	s.failOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.failed)
	})
}
