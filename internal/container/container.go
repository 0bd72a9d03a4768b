package container

import (
	"context"
	"fmt"

	"sheetflow/adapters/api"
	"sheetflow/adapters/excel"
	"sheetflow/adapters/postgres"
	"sheetflow/app"
	"sheetflow/internal"
	"sheetflow/internal/config"
	"sheetflow/internal/errors"
	"sheetflow/internal/migration"
	"sheetflow/ports"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	RowRepo ports.RowRepository

	// Pipeline and its HTTP surface
	Pipeline    *app.PipelineService
	RowsHandler *api.RowsHandler
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := internal.NewLogger(cfg.Logging.Level)
	pipeline := app.NewPipelineService(logger)
	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Pipeline: pipeline,
	}
	c.RowsHandler = api.NewRowsHandler(pipeline, cfg.ReadOptions(), c.SinkOptions(), logger)
	return c, nil
}

// SinkOptions returns the workbook sink settings from config
func (c *Container) SinkOptions() excel.SinkOptions {
	return excel.SinkOptions{HighWaterMark: c.Config.Pipeline.SinkHighWater}
}

// Connect opens the configured database and wires the repositories
func (c *Container) Connect(ctx context.Context) error {
	if err := c.Config.RequireDatabase(); err != nil {
		return err
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return errors.DatabaseError("failed to connect to database", err)
	}
	return c.InitWithDatabase(db)
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	c.DB = db
	c.RowRepo = postgres.NewRowRepository(db, c.Config.Database.Table)
	c.Logger.Debug("database ready, rows go to table %q", c.Config.Database.Table)
	return nil
}

// Migrate creates the row table if needed
func (c *Container) Migrate(ctx context.Context) error {
	if c.DB == nil {
		return fmt.Errorf("database is not connected")
	}
	runner := migration.NewRunner(c.Config.Database.Table)
	if err := runner.Run(ctx, c.DB); err != nil {
		return errors.Wrap(err, "database migration failed")
	}
	c.Logger.Info("migration %s applied to %q", runner.Version(), c.Config.Database.Table)
	return nil
}

// Router builds the HTTP handler for the serve command
func (c *Container) Router() *gin.Engine {
	gin.SetMode(c.Config.Server.GinMode)
	return api.NewRouter(c.RowsHandler, c.Logger)
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
