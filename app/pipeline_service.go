package app

import (
	"context"
	"iter"

	"sheetflow/domain/sheet"
	"sheetflow/internal"
	"sheetflow/internal/batch"
	"sheetflow/internal/materialize"
	"sheetflow/internal/writer"
	"sheetflow/ports"
)

// PipelineService is the row transform API: materialize, write and process
type PipelineService struct {
	processor *batch.Processor
	logger    *internal.Logger
}

func NewPipelineService(logger *internal.Logger) *PipelineService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &PipelineService{
		processor: batch.NewProcessor(logger),
		logger:    logger,
	}
}

// Materialize returns the lazy record sequence of source. Option errors are
// returned here, before anything is read.
func (s *PipelineService) Materialize(ctx context.Context, source ports.CellSource, opts sheet.ReadOptions) (iter.Seq2[*sheet.Record, error], error) {
	m, err := materialize.New(source, opts, s.logger)
	if err != nil {
		return nil, err
	}
	return m.Rows(ctx), nil
}

// Write emits rows to sink and commits it
func (s *PipelineService) Write(ctx context.Context, sink ports.RowSink, rows iter.Seq2[*sheet.Record, error], opts sheet.WriteOptions) (*writer.Result, error) {
	w, err := writer.New(sink, opts, s.logger)
	if err != nil {
		return nil, err
	}
	return w.Write(ctx, rows)
}

// Process materializes source and runs handler over its rows in windows
func (s *PipelineService) Process(ctx context.Context, source ports.CellSource, handler batch.Handler, opts sheet.ProcessOptions) (*batch.Report, error) {
	rows, err := s.Materialize(ctx, source, opts.Read)
	if err != nil {
		return nil, err
	}
	return s.processor.Process(ctx, rows, handler, opts)
}

// Convert streams source into sink, re-localizing dates on the way
func (s *PipelineService) Convert(ctx context.Context, source ports.CellSource, sink ports.RowSink, read sheet.ReadOptions, write sheet.WriteOptions) (*writer.Result, error) {
	w, err := writer.New(sink, write, s.logger)
	if err != nil {
		return nil, err
	}
	rows, err := s.Materialize(ctx, source, read)
	if err != nil {
		return nil, err
	}
	return w.Write(ctx, rows)
}

// LoadHandler stores each processed row in repo under the run's ID
func LoadHandler(repo ports.RowRepository) batch.Handler {
	return func(ctx context.Context, row *sheet.Record) error {
		runID, _ := batch.RunIDFromContext(ctx)
		index, _ := batch.RowIndexFromContext(ctx)
		return repo.Insert(ctx, runID, index, row)
	}
}
