// pkg/source/factory.go
package source

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/epidatalab/covid-eda/pkg/config"
)

// Factory creates the data source selected by configuration.
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new source factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// Create builds the configured backend.
func (f *Factory) Create(ctx context.Context) (Source, error) {
	switch f.cfg.SourceBackend {
	case config.BackendHub:
		return f.CreateHubSource()
	case config.BackendPostgres:
		return f.CreatePostgresSource(ctx)
	case config.BackendSnowflake:
		return f.CreateSnowflakeSource(ctx)
	default:
		return nil, fmt.Errorf("unknown source backend %q", f.cfg.SourceBackend)
	}
}

// CreateHubSource creates the HTTP hub source.
func (f *Factory) CreateHubSource() (*HubSource, error) {
	f.logger.Info("Creating hub source")

	src, err := NewHubSource(f.cfg.Hub)
	if err != nil {
		return nil, fmt.Errorf("failed to create hub source: %w", err)
	}

	return src, nil
}

// CreatePostgresSource creates the PostgreSQL mirror source.
func (f *Factory) CreatePostgresSource(ctx context.Context) (*PostgresSource, error) {
	f.logger.Info("Creating PostgreSQL source")

	src, err := NewPostgresSource(ctx, f.cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL source: %w", err)
	}

	return src, nil
}

// CreateSnowflakeSource creates the Snowflake mirror source.
func (f *Factory) CreateSnowflakeSource(ctx context.Context) (*SnowflakeSource, error) {
	f.logger.Info("Creating Snowflake source")

	src, err := NewSnowflakeSource(ctx, f.cfg.Snowflake)
	if err != nil {
		return nil, fmt.Errorf("failed to create Snowflake source: %w", err)
	}

	return src, nil
}
