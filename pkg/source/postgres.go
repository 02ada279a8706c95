// pkg/source/postgres.go
package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/epidatalab/covid-eda/pkg/config"
	"github.com/epidatalab/covid-eda/pkg/model"
)

// PostgresSource reads a relational mirror of the hub export.
type PostgresSource struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.PostgresConfig
}

// NewPostgresSource connects to the PostgreSQL mirror.
func NewPostgresSource(ctx context.Context, cfg *config.PostgresConfig) (*PostgresSource, error) {
	logger := zap.L().Named("postgres-source")

	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	db, err := sqlx.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	ApplyConnectionSettings(
		db.DB,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	// Set statement timeout if configured
	if cfg.StatementTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("SET statement_timeout = %d", cfg.StatementTimeout.Milliseconds()),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	if err := PingWithTimeout(ctx, db.DB, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	src := &PostgresSource{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}

	LogConnectionStats(logger, cfg.Database, db.DB)
	return src, nil
}

// Name identifies the backend.
func (s *PostgresSource) Name() string { return "postgres" }

// Validate verifies the connection and that the mirror table exists. The
// mirror is read-only for this pipeline, so no write permission is checked.
func (s *PostgresSource) Validate(ctx context.Context) error {
	var version string
	if err := s.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return fmt.Errorf("failed to query PostgreSQL version: %w", err)
	}
	s.logger.Info("Connected to PostgreSQL", zap.String("version", version))

	var exists bool
	query := `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = $1
		)
	`
	if err := s.db.QueryRowContext(ctx, query, s.cfg.Table).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check mirror table: %w", err)
	}
	if !exists {
		return fmt.Errorf("mirror table %q does not exist", s.cfg.Table)
	}

	s.logger.Info("PostgreSQL mirror validated",
		zap.String("database", s.cfg.Database),
		zap.String("table", s.cfg.Table))
	return nil
}

// Fetch reads the mirror rows for a granularity level. Every column is cast
// to text so the payload matches the hub CSV shape, nulls as empty cells.
func (s *PostgresSource) Fetch(ctx context.Context, level int) ([][]string, error) {
	query := fmt.Sprintf(`
		SELECT
			region_level2::text,
			to_char(date, 'YYYY-MM-DD'),
			confirmed::text,
			deaths::text,
			recovered::text,
			tests::text,
			population::text,
			stringency_index::text,
			government_response_index::text
		FROM %s
		WHERE level = $1
		ORDER BY region_level2, date
	`, s.cfg.Table)

	queryCtx, cancel := context.WithTimeout(ctx, s.cfg.StatementTimeout)
	defer cancel()

	start := time.Now()
	rows, err := s.db.QueryxContext(queryCtx, query, level)
	if err != nil {
		return nil, fmt.Errorf("mirror query failed: %w", err)
	}
	defer rows.Close()

	records := [][]string{append([]string(nil), model.RequiredColumns...)}
	for rows.Next() {
		cells, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan mirror row: %w", err)
		}
		records = append(records, stringifyRow(cells))
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
func (s *PostgresSource) Close() error {
	s.logger.Info("Closing PostgreSQL connection")
	LogConnectionStats(s.logger, s.cfg.Database, s.db.DB)
	return s.db.Close()
}

// stringifyRow renders generic scan values as CSV-shaped cells. SQL NULL
// becomes the empty string, the same null token the hub export uses.
func stringifyRow(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, cell := range cells {
		switch v := cell.(type) {
		case nil:
			out[i] = ""
		case []byte:
			out[i] = string(v)
		case string:
			out[i] = v
		case time.Time:
			out[i] = v.Format("2006-01-02")
		case sql.RawBytes:
			out[i] = string(v)
		default:
			out[i] = fmt.Sprintf("%v", v)
		}
	}
	return out
}
