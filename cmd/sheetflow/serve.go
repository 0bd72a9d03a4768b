package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sheetflow/internal/container"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(deps func() *container.Container) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rows API over HTTP",
		Long: `Start the HTTP API:

  POST /v1/rows     multipart "file" upload, answered with NDJSON rows
  POST /v1/convert  multipart "file" upload, answered with an XLSX workbook
  GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := deps()
			if port == "" {
				port = c.Config.Server.Port
			}
			server := &http.Server{
				Addr:              ":" + port,
				Handler:           c.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				c.Logger.Info("listening on %s", server.Addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
				c.Logger.Info("shutting down")
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return server.Shutdown(ctx)
			}
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Port to listen on (default: PORT)")
	return cmd
}
