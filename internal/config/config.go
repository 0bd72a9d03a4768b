package config

import (
	"os"
	"strconv"
	"strings"

	"sheetflow/domain/sheet"
	"sheetflow/internal"
	"sheetflow/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Pipeline PipelineConfig
	Database DatabaseConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// PipelineConfig holds defaults for reading, writing and batch processing
type PipelineConfig struct {
	SheetName       string
	HeaderRowNumber int
	TimeZone        string
	BatchSize       int
	Concurrency     int
	SinkHighWater   int
}

// DatabaseConfig holds the Postgres target used by the load command
type DatabaseConfig struct {
	URL   string
	Table string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level internal.LogLevel
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Pipeline: *loadPipelineConfig(),
		Database: *loadDatabaseConfig(),
		Server:   *loadServerConfig(),
		Logging:  LoggingConfig{Level: internal.ParseLogLevel(os.Getenv("LOG_LEVEL"))},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		SheetName:       getEnvOrDefault("SHEETFLOW_SHEET", ""),
		HeaderRowNumber: getEnvIntOrDefault("SHEETFLOW_HEADER_ROW", 1),
		TimeZone:        getEnvOrDefault("SHEETFLOW_TIME_ZONE", ""),
		BatchSize:       getEnvIntOrDefault("SHEETFLOW_BATCH_SIZE", 2000),
		Concurrency:     getEnvIntOrDefault("SHEETFLOW_CONCURRENCY", 8),
		SinkHighWater:   getEnvIntOrDefault("SHEETFLOW_SINK_HIGH_WATER", 512),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:   getEnvOrDefault("DATABASE_URL", ""),
		Table: getEnvOrDefault("SHEETFLOW_TABLE", "sheet_rows"),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func validateConfig(config *Config) error {
	p := config.Pipeline
	if p.HeaderRowNumber < 1 {
		return errors.ConfigInvalid("SHEETFLOW_HEADER_ROW must be at least 1")
	}
	if p.BatchSize < 1 {
		return errors.ConfigInvalid("SHEETFLOW_BATCH_SIZE must be positive")
	}
	if p.Concurrency < 1 {
		return errors.ConfigInvalid("SHEETFLOW_CONCURRENCY must be positive")
	}
	if p.SinkHighWater < 1 {
		return errors.ConfigInvalid("SHEETFLOW_SINK_HIGH_WATER must be positive")
	}
	if strings.TrimSpace(config.Database.Table) == "" {
		return errors.ConfigInvalid("SHEETFLOW_TABLE cannot be empty")
	}
	return nil
}

// RequireDatabase checks the settings only the load command needs
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	return nil
}

// ReadOptions builds read options from the pipeline defaults
func (c *Config) ReadOptions() sheet.ReadOptions {
	opts := sheet.DefaultReadOptions()
	opts.SheetName = c.Pipeline.SheetName
	opts.HeaderRowNumber = c.Pipeline.HeaderRowNumber
	opts.TimeZone = c.Pipeline.TimeZone
	return opts
}

// ProcessOptions builds processing options from the pipeline defaults
func (c *Config) ProcessOptions() sheet.ProcessOptions {
	return sheet.ProcessOptions{
		Read:        c.ReadOptions(),
		BatchSize:   c.Pipeline.BatchSize,
		Concurrency: c.Pipeline.Concurrency,
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
