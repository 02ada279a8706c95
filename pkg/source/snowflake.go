// pkg/source/snowflake.go
package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/epidatalab/covid-eda/pkg/config"
	"github.com/epidatalab/covid-eda/pkg/model"
)

// SnowflakeSource reads a Snowflake warehouse mirroring the hub export.
type SnowflakeSource struct {
	db     *sql.DB
	logger *zap.Logger
	cfg    *config.SnowflakeConfig
}

// NewSnowflakeSource connects to the Snowflake mirror.
func NewSnowflakeSource(ctx context.Context, cfg *config.SnowflakeConfig) (*SnowflakeSource, error) {
	logger := zap.L().Named("snowflake-source")

	// Create DSN using Snowflake's DSN builder
	sfConfig := &sf.Config{
		Account:       cfg.Account,
		User:          cfg.User,
		Password:      cfg.Password,
		Database:      cfg.Database,
		Schema:        cfg.Schema,
		Warehouse:     cfg.Warehouse,
		Role:          cfg.Role,
		Authenticator: cfg.Authenticator,
	}

	// Log connection attempt (without credentials)
	logger.Info("Connecting to Snowflake",
		zap.String("account", cfg.Account),
		zap.String("user", cfg.User),
		zap.String("database", cfg.Database),
		zap.String("warehouse", cfg.Warehouse),
		zap.String("role", cfg.Role))

	dsn, err := sf.DSN(sfConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Snowflake connection: %w", err)
	}

	ApplyConnectionSettings(
		db,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	// Set query timeout if configured
	if cfg.QueryTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("ALTER SESSION SET STATEMENT_TIMEOUT_IN_SECONDS = %d",
				int(cfg.QueryTimeout.Seconds())),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	if err := PingWithTimeout(ctx, db, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Snowflake: %w", err)
	}

	src := &SnowflakeSource{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}

	LogConnectionStats(logger, cfg.Database, db)
	return src, nil
}

// Name identifies the backend.
func (s *SnowflakeSource) Name() string { return "snowflake" }

// Validate verifies the Snowflake session and that the mirror table exists.
func (s *SnowflakeSource) Validate(ctx context.Context) error {
	var role, database, warehouse string
	err := s.db.QueryRowContext(ctx,
		"SELECT CURRENT_ROLE(), CURRENT_DATABASE(), CURRENT_WAREHOUSE()").Scan(
		&role, &database, &warehouse)
	if err != nil {
		return fmt.Errorf("failed to verify Snowflake access: %w", err)
	}

	s.logger.Info("Connected to Snowflake",
		zap.String("role", role),
		zap.String("database", database),
		zap.String("warehouse", warehouse))

	// Verify we're connected to the correct database
	if !strings.EqualFold(database, s.cfg.Database) {
		return fmt.Errorf("connected to wrong database: %s (expected: %s)",
			database, s.cfg.Database)
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SHOW TABLES LIKE '%s' IN SCHEMA %s.%s",
			s.cfg.Table, s.cfg.Database, s.cfg.Schema))
	if err != nil {
		return fmt.Errorf("failed to check mirror table: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return fmt.Errorf("mirror table %q does not exist in %s.%s",
			s.cfg.Table, s.cfg.Database, s.cfg.Schema)
	}

	return rows.Err()
}

// Fetch reads the mirror rows for a granularity level, every column cast to
// text so the payload matches the hub CSV shape.
func (s *SnowflakeSource) Fetch(ctx context.Context, level int) ([][]string, error) {
	query := fmt.Sprintf(`
		SELECT
			TO_VARCHAR(region_level2),
			TO_VARCHAR(date, 'YYYY-MM-DD'),
			TO_VARCHAR(confirmed),
			TO_VARCHAR(deaths),
			TO_VARCHAR(recovered),
			TO_VARCHAR(tests),
			TO_VARCHAR(population),
			TO_VARCHAR(stringency_index),
			TO_VARCHAR(government_response_index)
		FROM %s
		WHERE level = ?
		ORDER BY region_level2, date
	`, s.cfg.Table)

	queryCtx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := s.db.QueryContext(queryCtx, query, level)
	if err != nil {
		return nil, fmt.Errorf("mirror query failed: %w", err)
	}
	defer rows.Close()

	records := [][]string{append([]string(nil), model.RequiredColumns...)}
	cells := make([]sql.NullString, len(model.RequiredColumns))
	scan := make([]interface{}, len(cells))
	for i := range cells {
		scan[i] = &cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("failed to scan mirror row: %w", err)
		}
		record := make([]string, len(cells))
		for i, cell := range cells {
			if cell.Valid {
				record[i] = cell.String
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mirror rows: %w", err)
	}

	s.logger.Info("Mirror rows fetched",
		zap.Int("rows", len(records)-1),
		zap.Int("level", level),
		zap.Duration("duration", time.Since(start)))
	return records, nil
}

// Close closes the database connection
func (s *SnowflakeSource) Close() error {
	s.logger.Info("Closing Snowflake connection")
	LogConnectionStats(s.logger, s.cfg.Database, s.db)
	return s.db.Close()
}
