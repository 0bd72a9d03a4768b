package excel

import "sheetflow/ports"

// Workbook is an opened spreadsheet file that can be streamed row by row
type Workbook interface {
	ports.CellSource
	// Date1904 reports whether date serials count from 1904-01-01
	Date1904() bool
	Close() error
}
