package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowmigrate/flowmigrate/internal/config"
	"github.com/flowmigrate/flowmigrate/internal/database"
	"github.com/flowmigrate/flowmigrate/internal/engine"
	"github.com/flowmigrate/flowmigrate/internal/logging"
)

// errDatabaseURLRequired is returned when no database URL is configured.
var errDatabaseURLRequired = errors.New(
	"database URL is required (set --database-url, MIGRATE_DATABASE_URL, or database_url in config)",
)

// buildLogger constructs the shared *slog.Logger for a command invocation
// from the resolved configuration, writing to out rather than os.Stderr so
// tests can capture it.
func buildLogger(cfg *config.Config, out io.Writer) *slog.Logger {
	format := logging.Text
	if cfg.Format == "json" {
		format = logging.JSON
	}

	return logging.New(logging.Options{Format: format, Verbose: cfg.Verbose, Output: out})
}

// connectAndBuildEngine connects to cfg.DatabaseURL and wraps the resulting
// pool in an Engine. The caller owns the returned pool and must close it.
func connectAndBuildEngine(ctx context.Context, cfg *config.Config, out io.Writer) (*engine.Engine, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, errDatabaseURLRequired
	}

	fmt.Fprintf(out, "Connecting to %s\n", config.RedactURL(cfg.DatabaseURL))

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	logger := buildLogger(cfg, out)

	return engine.New(cfg, pool, logger), pool, nil
}
