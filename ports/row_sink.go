package ports

import "sheetflow/domain/sheet"

// RowSink accepts constructed rows with ordered columns.
//
// WriteRow returning more=false means the sink buffered the row but wants the
// caller to wait on Drained before writing again. Failed is closed once the
// sink hits an error, after which Err reports it.
type RowSink interface {
	Begin(sheetName string, columns []sheet.ColumnSpec) error
	WriteRow(values []any) (more bool, err error)
	Drained() <-chan struct{}
	Failed() <-chan struct{}
	Err() error
	Commit() error
}
