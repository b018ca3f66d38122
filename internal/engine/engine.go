// Package engine is the façade spec.md §4.7 describes: it resolves
// configuration into connections and an adapter, and dispatches the
// migrate/info/validate/init/repair/clean commands against the resolver,
// metadata table, executor, and info service. Anonymous command objects
// closing over engine state, the source pattern this replaces, become
// plain methods on Engine taking an immutable *config.Config snapshot.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowmigrate/flowmigrate/internal/config"
	"github.com/flowmigrate/flowmigrate/internal/database"
	"github.com/flowmigrate/flowmigrate/internal/enginerr"
	"github.com/flowmigrate/flowmigrate/internal/metadata"
	"github.com/flowmigrate/flowmigrate/internal/migration"
	"github.com/flowmigrate/flowmigrate/internal/resolver"
	"github.com/flowmigrate/flowmigrate/internal/version"
)

// Engine dispatches commands over a connection pool per the configuration
// snapshot it was built with. Host-registered CodeMigrations are supplied
// once at construction time, replacing the original design's reflection-based
// classpath scanning (spec.md §9).
type Engine struct {
	cfg    *config.Config
	pool   *pgxpool.Pool
	logger *slog.Logger
	code   []resolver.CodeMigration
}

// New constructs an Engine bound to pool for the lifetime of cfg. logger may
// be nil, in which case slog.Default() is used.
func New(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger, code ...resolver.CodeMigration) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{cfg: cfg, pool: pool, logger: logger, code: code}
}

// session bundles everything a command body needs after step 1-3 of
// spec.md §4.7: the resolved schemas, the two connections, and the adapter.
// close releases both connections; callers defer it immediately after open
// succeeds so every exit path — including a later error — releases them.
type session struct {
	schemas  []string
	metaConn *pgxpool.Conn
	userConn *pgxpool.Conn
	adapter  database.Adapter
	table    *metadata.Table
}

func (s *session) close() {
	if s.userConn != nil {
		s.userConn.Release()
	}

	if s.metaConn != nil {
		s.metaConn.Release()
	}
}

// open performs spec.md §4.7 steps 1-3: resolve schemas, acquire the two
// connections, and build the database adapter from the metadata connection.
func (e *Engine) open(ctx context.Context) (*session, error) {
	metaConn, userConn, err := database.AcquireTwo(ctx, e.pool)
	if err != nil {
		return nil, enginerr.Wrap(enginerr.ConfigError, "acquiring connections", err)
	}

	adapter, err := database.NewAdapter(ctx, metaConn)
	if err != nil {
		metaConn.Release()
		userConn.Release()

		return nil, enginerr.Wrap(enginerr.ConfigError, "detecting database adapter", err)
	}

	schemas := e.cfg.Schemas
	if len(schemas) == 0 {
		current, err := adapter.CurrentSchema(ctx, metaConn)
		if err != nil {
			metaConn.Release()
			userConn.Release()

			return nil, enginerr.Wrap(enginerr.ConfigError, "resolving current schema", err)
		}

		schemas = []string{current}
	}

	table, err := metadata.New(metaConn, adapter, qualifiedTable(schemas, e.cfg.Table))
	if err != nil {
		metaConn.Release()
		userConn.Release()

		return nil, enginerr.Wrap(enginerr.ConfigError, "building metadata table", err)
	}

	return &session{schemas: schemas, metaConn: metaConn, userConn: userConn, adapter: adapter, table: table}, nil
}

// qualifiedTable schema-qualifies table with the default (first) schema
// unless table is already qualified.
func qualifiedTable(schemas []string, table string) string {
	if strings.Contains(table, ".") || len(schemas) == 0 {
		return table
	}

	return schemas[0] + "." + table
}

func (e *Engine) resolveCatalog(ctx context.Context, adapter database.Adapter) (migration.Catalog, []string, error) {
	locations := make([]resolver.Location, 0, len(e.cfg.Locations))
	for _, l := range e.cfg.Locations {
		locations = append(locations, resolver.DirLocation(l))
	}

	r := resolver.New(locations, e.code, resolver.Options{
		SQLMigrationPrefix: e.cfg.SQLMigrationPrefix,
		SQLMigrationSuffix: e.cfg.SQLMigrationSuffix,
		Encoding:           e.cfg.Encoding,
		Placeholders: resolver.Placeholders{
			Values: e.cfg.Placeholders,
			Prefix: e.cfg.PlaceholderPrefix,
			Suffix: e.cfg.PlaceholderSuffix,
		},
		Logger: e.logger,
	})

	catalog, warnings, err := r.Resolve(ctx, adapter)
	if err != nil {
		return nil, nil, enginerr.Wrap(enginerr.ResolveError, "resolving migrations", err)
	}

	for _, w := range warnings {
		e.logger.Warn(w)
	}

	return catalog, warnings, nil
}

func (e *Engine) targetVersion() (version.Version, error) {
	v, err := version.Parse(e.cfg.Target)
	if err != nil {
		return version.Version{}, enginerr.Wrap(enginerr.ConfigError, "parsing target version", err)
	}

	if v.IsEmpty() {
		return version.Latest, nil
	}

	return v, nil
}

// ensureSchemas creates any configured schema that does not yet exist and
// returns the names the engine itself created, so the caller can record a
// SCHEMA synthetic ledger row authorizing a later clean.
func ensureSchemas(ctx context.Context, adapter database.Adapter, q database.Queryer, schemas []string) ([]string, error) {
	var created []string

	for _, s := range schemas {
		exists, err := adapter.SchemaExists(ctx, q, s)
		if err != nil {
			return nil, fmt.Errorf("checking schema %s: %w", s, err)
		}

		if exists {
			continue
		}

		if err := adapter.CreateSchema(ctx, q, s); err != nil {
			return nil, fmt.Errorf("creating schema %s: %w", s, err)
		}

		created = append(created, s)
	}

	return created, nil
}
