package main

import (
	"encoding/json"

	"sheetflow/adapters/excel"
	"sheetflow/app"
	"sheetflow/internal/container"

	"github.com/spf13/cobra"
)

func newLoadCmd(deps func() *container.Container) *cobra.Command {
	var (
		read        readFlags
		batchSize   int
		concurrency int
		migrate     bool
	)

	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Load the rows of a workbook into Postgres as JSONB",
		Long: `Insert every data row into SHEETFLOW_TABLE under a fresh run ID, in
windows of --batch-size rows with at most --concurrency inserts in flight.

Example: sheetflow load orders.xlsx --migrate --batch-size 500 --concurrency 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := deps()
			ctx := cmd.Context()
			if err := c.Connect(ctx); err != nil {
				return err
			}
			if migrate {
				if err := c.Migrate(ctx); err != nil {
					return err
				}
			}

			wb, err := excel.Open(args[0])
			if err != nil {
				return err
			}
			defer wb.Close()

			opts := c.Config.ProcessOptions()
			opts.Read = read.apply(opts.Read, wb)
			if cmd.Flags().Changed("batch-size") {
				opts.BatchSize = batchSize
			}
			if cmd.Flags().Changed("concurrency") {
				opts.Concurrency = concurrency
			}

			report, err := c.Pipeline.Process(ctx, wb, app.LoadHandler(c.RowRepo), opts)
			if err != nil {
				return err
			}
			stored, err := c.RowRepo.CountRun(ctx, report.RunID)
			if err != nil {
				return err
			}
			c.Logger.Info("run %s: %d rows processed, %d stored", report.RunID, report.Rows, stored)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	read.register(cmd)
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Rows per window (default: SHEETFLOW_BATCH_SIZE)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Inserts in flight per window (default: SHEETFLOW_CONCURRENCY)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Create the table before loading")
	return cmd
}

func newMigrateCmd(deps func() *container.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres table rows are loaded into",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := deps()
			if err := c.Connect(cmd.Context()); err != nil {
				return err
			}
			return c.Migrate(cmd.Context())
		},
	}
}
