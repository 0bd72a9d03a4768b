// Package excel adapts excelize workbooks and CSV files to the cell source and
// row sink ports.
package excel

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// csvSheetName is the single sheet a CSV file exposes
const csvSheetName = "Sheet1"

// Open opens a workbook from disk, choosing CSV or XLSX by extension
func Open(path string) (Workbook, error) {
	if isCSV(path) {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		return newCSVSource(file, file), nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	return newSource(f), nil
}

// OpenReader opens a workbook from r; name only selects the format
func OpenReader(r io.Reader, name string) (Workbook, error) {
	if isCSV(name) {
		return newCSVSource(r, nil), nil
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel data: %w", err)
	}
	return newSource(f), nil
}

// OpenReadCloser is OpenReader for a stream the workbook takes ownership of.
// CSV rows are read lazily, so rc stays open until the workbook is closed.
func OpenReadCloser(rc io.ReadCloser, name string) (Workbook, error) {
	if isCSV(name) {
		return newCSVSource(rc, rc), nil
	}
	defer rc.Close()
	return OpenReader(rc, name)
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// CSVSource streams a CSV file as one sheet of text cells
type CSVSource struct {
	reader *csv.Reader
	closer io.Closer
	read   bool
}

func newCSVSource(r io.Reader, closer io.Closer) *CSVSource {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	return &CSVSource{reader: reader, closer: closer}
}

func (s *CSVSource) SheetNames() []string { return []string{csvSheetName} }

// Date1904 is always false, CSV carries no serials
func (s *CSVSource) Date1904() bool { return false }

func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

var errCSVConsumed = errors.New("CSV rows can only be read once")
