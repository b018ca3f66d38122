// Package migration holds the engine's data model: the kinds of migration,
// the states a version can be in, the resolved (available) and applied
// (ledger) representations of a migration, and the unified MigrationInfo
// view the info service produces.
package migration

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/flowmigrate/flowmigrate/internal/version"
)

// Type identifies how a migration is implemented.
type Type string

// The four migration types.
const (
	TypeSQL    Type = "SQL"
	TypeCode   Type = "CODE"
	TypeSchema Type = "SCHEMA" // synthetic: engine auto-created a schema
	TypeInit   Type = "INIT"   // synthetic: baseline recorded by init
)

// State is the derived status of a version once catalog and ledger are
// joined by the info service.
type State string

// The six migration states.
const (
	StatePending     State = "PENDING"
	StateSuccess     State = "SUCCESS"
	StateFailed      State = "FAILED"
	StateMissing     State = "MISSING"
	StateFuture      State = "FUTURE"
	StateOutOfOrder  State = "OUT_OF_ORDER"
)

// SQLExecutor is the minimal surface both a pgx transaction and a pgx pool
// share, letting a ResolvedMigration's Apply run against either without the
// migration package depending on which one the executor chose.
type SQLExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Applier is the opaque executor capability a resolved migration carries:
// given a user-objects connection, it applies the migration.
type Applier interface {
	Apply(ctx context.Context, exec SQLExecutor) error
}

// ApplierFunc adapts a function to the Applier interface.
type ApplierFunc func(ctx context.Context, exec SQLExecutor) error

// Apply implements Applier.
func (f ApplierFunc) Apply(ctx context.Context, exec SQLExecutor) error {
	return f(ctx, exec)
}

// Renderer is optionally implemented by an Applier backed by a SQL script:
// it returns the fully placeholder-substituted script text without
// executing anything, so the executor can inspect it (e.g. to decide
// whether its DDL can run inside a transaction) before applying it.
// CodeMigrations do not implement it.
type Renderer interface {
	Render() (string, error)
}

// ResolvedMigration is an available migration produced by the resolver.
type ResolvedMigration struct {
	Version     version.Version
	Description string
	Type        Type
	Script      string // filename for SQL, fully-qualified name for CODE
	Checksum    *int32 // absent (nil) for CODE migrations without one
	Apply       Applier
}

// AppliedMigration is a row of the on-database ledger.
type AppliedMigration struct {
	InstalledRank int64
	Version       version.Version
	Description   string
	Type          Type
	Script        string
	Checksum      *int32
	InstalledOn   time.Time
	InstalledBy   string
	ExecutionTime time.Duration
	Success       bool
	Current       bool
}
