// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Source backend identifiers accepted by SOURCE_BACKEND.
const (
	BackendHub       = "hub"
	BackendPostgres  = "postgres"
	BackendSnowflake = "snowflake"
)

// Log output formats accepted by LOG_FORMAT.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Config represents the application configuration. Analysis constants (the
// regression formula, collapse width, histogram bins) are not configurable
// and live in their packages; this covers the operational surface only.
type Config struct {
	// Data source
	SourceBackend    string
	GranularityLevel int // 1 = country, 2 = state/province, 3 = city

	Hub       *HubConfig
	Postgres  *PostgresConfig
	Snowflake *SnowflakeConfig

	// Artifact output
	OutputDir string

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables. Backend
// credentials are only required for the selected backend; the default hub
// backend needs no environment at all.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		SourceBackend:    getEnv("SOURCE_BACKEND", BackendHub),
		GranularityLevel: getEnvAsInt("GRANULARITY_LEVEL", 2),
		OutputDir:        getEnv("OUTPUT_DIR", "output"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", LogFormatJSON),
	}

	switch cfg.SourceBackend {
	case BackendHub:
		cfg.Hub = LoadHubConfig()
	case BackendPostgres:
		pgConfig, err := LoadPostgresConfig()
		if err != nil {
			return nil, errors.New("failed to load PostgreSQL configuration: " + err.Error())
		}
		cfg.Postgres = pgConfig
	case BackendSnowflake:
		snowConfig, err := LoadSnowflakeConfig()
		if err != nil {
			return nil, errors.New("failed to load Snowflake configuration: " + err.Error())
		}
		cfg.Snowflake = snowConfig
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	switch c.SourceBackend {
	case BackendHub, BackendPostgres, BackendSnowflake:
	default:
		return fmt.Errorf("unknown source backend %q", c.SourceBackend)
	}

	if c.GranularityLevel < 1 || c.GranularityLevel > 3 {
		return fmt.Errorf("granularity level must be 1, 2, or 3, got %d", c.GranularityLevel)
	}

	if c.OutputDir == "" {
		return errors.New("output directory cannot be empty")
	}

	switch c.LogFormat {
	case LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
