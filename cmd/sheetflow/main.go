package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sheetflow/internal/config"
	"sheetflow/internal/container"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	var app *container.Container

	rootCmd := &cobra.Command{
		Use:           "sheetflow",
		Short:         "Stream spreadsheet rows into records, workbooks and Postgres",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load environment variables from .env file
			if err := godotenv.Load(); err != nil {
				log.Println("No .env file found, using system environment variables")
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			app, err = container.New(cfg)
			return err
		},
	}

	deps := func() *container.Container { return app }
	rootCmd.AddCommand(
		newRowsCmd(deps),
		newConvertCmd(deps),
		newLoadCmd(deps),
		newMigrateCmd(deps),
		newServeCmd(deps),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := execute(ctx, rootCmd, deps); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// execute runs root and then shuts the container down, whether or not the
// command failed
func execute(ctx context.Context, root *cobra.Command, deps func() *container.Container) error {
	err := root.ExecuteContext(ctx)
	if c := deps(); c != nil {
		if shutdownErr := c.Shutdown(context.Background()); shutdownErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown: %w", shutdownErr))
		}
	}
	return err
}
