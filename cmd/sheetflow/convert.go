package main

import (
	"fmt"
	"os"

	"sheetflow/adapters/excel"
	"sheetflow/domain/sheet"
	"sheetflow/internal/container"

	"github.com/spf13/cobra"
)

func newConvertCmd(deps func() *container.Container) *cobra.Command {
	var (
		read        readFlags
		outSheet    string
		outTimeZone string
		dateColumns []string
	)

	cmd := &cobra.Command{
		Use:   "convert <in> <out.xlsx>",
		Short: "Rewrite a workbook, moving its dates to another time zone",
		Long: `Stream the rows of an XLSX or CSV file into a new XLSX workbook.

Example: sheetflow convert orders.xlsx orders_berlin.xlsx --time-zone America/New_York --out-time-zone Europe/Berlin`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			c := deps()
			wb, err := excel.Open(args[0])
			if err != nil {
				return err
			}
			defer wb.Close()

			file, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[1], err)
			}
			defer closeInto(&err, file, args[1])

			write := sheet.DefaultWriteOptions()
			if outSheet != "" {
				write.SheetName = outSheet
			}
			write.TimeZone = outTimeZone
			write.DateColumns = dateColumns

			sink := excel.NewSink(file, c.SinkOptions())
			defer sink.Close()
			result, err := c.Pipeline.Convert(cmd.Context(), wb, sink, read.apply(c.Config.ReadOptions(), wb), write)
			if err != nil {
				return err
			}
			c.Logger.Info("%d rows written to %s (sheet %q, %d columns)", result.Rows, args[1], result.SheetName, len(result.Columns))
			return nil
		},
	}

	read.register(cmd)
	cmd.Flags().StringVar(&outSheet, "out-sheet", "", "Name of the written sheet (default Sheet1)")
	cmd.Flags().StringVar(&outTimeZone, "out-time-zone", "", "IANA zone to write dates in")
	cmd.Flags().StringSliceVar(&dateColumns, "date-columns", nil, "Only move these columns (default: every date)")
	return cmd
}
