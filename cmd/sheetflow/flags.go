package main

import (
	"strings"

	"sheetflow/adapters/excel"
	"sheetflow/domain/sheet"

	"github.com/spf13/cobra"
)

// readFlags holds the read option overrides shared by several commands
type readFlags struct {
	sheet         string
	headerRow     int
	timeZone      string
	arrayColumns  []string
	trimValues    bool
	keepEmptyRows bool
	noDates       bool
}

func (f *readFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "Only read this sheet (default: every sheet, or SHEETFLOW_SHEET)")
	cmd.Flags().IntVar(&f.headerRow, "header-row", 0, "1-based header row number (default: SHEETFLOW_HEADER_ROW)")
	cmd.Flags().StringVar(&f.timeZone, "time-zone", "", "IANA zone the workbook's dates are local to")
	cmd.Flags().StringSliceVar(&f.arrayColumns, "array-columns", nil, "Columns split into lists")
	cmd.Flags().BoolVar(&f.trimValues, "trim", false, "Trim every text value")
	cmd.Flags().BoolVar(&f.keepEmptyRows, "keep-empty-rows", false, "Emit rows whose cells are all empty")
	cmd.Flags().BoolVar(&f.noDates, "no-dates", false, "Leave date serials as numbers")
}

// apply layers the flags over base and the workbook's date system
func (f *readFlags) apply(base sheet.ReadOptions, wb excel.Workbook) sheet.ReadOptions {
	opts := base
	if f.sheet != "" {
		opts.SheetName = f.sheet
	}
	if f.headerRow > 0 {
		opts.HeaderRowNumber = f.headerRow
	}
	if f.timeZone != "" {
		opts.TimeZone = f.timeZone
	}
	for _, c := range f.arrayColumns {
		if c = strings.TrimSpace(c); c != "" {
			opts.ArrayColumns = append(opts.ArrayColumns, c)
		}
	}
	opts.TrimTextValues = opts.TrimTextValues || f.trimValues
	opts.SkipEmptyRows = opts.SkipEmptyRows && !f.keepEmptyRows
	opts.ParseDates = opts.ParseDates && !f.noDates
	if wb.Date1904() {
		opts.Epoch = sheet.Epoch1904
	}
	return opts
}
