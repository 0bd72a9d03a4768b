package main

import (
	"fmt"
	"os"

	"sheetflow/adapters/excel"
	"sheetflow/internal/container"

	"github.com/spf13/cobra"
)

func newRowsCmd(deps func() *container.Container) *cobra.Command {
	var (
		read readFlags
		out  string
	)

	cmd := &cobra.Command{
		Use:   "rows <file>",
		Short: "Print the rows of a workbook as NDJSON",
		Long: `Read an XLSX or CSV file and print one JSON object per data row.

Example: sheetflow rows orders.xlsx --time-zone America/New_York --array-columns tags`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			c := deps()
			wb, err := excel.Open(args[0])
			if err != nil {
				return err
			}
			defer wb.Close()

			rows, err := c.Pipeline.Materialize(cmd.Context(), wb, read.apply(c.Config.ReadOptions(), wb))
			if err != nil {
				return err
			}

			dst := cmd.OutOrStdout()
			if out != "" {
				file, createErr := os.Create(out)
				if createErr != nil {
					return fmt.Errorf("failed to create %s: %w", out, createErr)
				}
				defer closeInto(&err, file, out)
				dst = file
			}

			count, err := writeNDJSON(dst, rows)
			if err != nil {
				return err
			}
			c.Logger.Info("%d rows read from %s", count, args[0])
			return nil
		},
	}

	read.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to this file instead of stdout")
	return cmd
}
