package main

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"sheetflow/internal/container"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteShutsDownAfterFailedCommand(t *testing.T) {
	// opening is lazy, no server is contacted
	raw, err := sql.Open("postgres", "postgres://localhost:1/none?sslmode=disable")
	require.NoError(t, err)
	c := &container.Container{DB: sqlx.NewDb(raw, "postgres")}

	loadFailed := errors.New("load failed")
	root := &cobra.Command{Use: "sheetflow", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(&cobra.Command{
		Use:  "load",
		RunE: func(*cobra.Command, []string) error { return loadFailed },
	})
	root.SetArgs([]string{"load"})

	err = execute(context.Background(), root, func() *container.Container { return c })
	assert.ErrorIs(t, err, loadFailed)
	assert.ErrorContains(t, raw.PingContext(context.Background()), "database is closed")
}

func TestExecuteWithoutContainer(t *testing.T) {
	root := &cobra.Command{Use: "sheetflow", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(&cobra.Command{
		Use:  "ok",
		RunE: func(*cobra.Command, []string) error { return nil },
	})
	root.SetArgs([]string{"ok"})

	err := execute(context.Background(), root, func() *container.Container { return nil })
	assert.NoError(t, err)
}
