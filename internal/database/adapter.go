package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queryer is the minimal surface a pooled connection, a pool, or a
// transaction all share. Adapter methods accept it so the same
// implementation runs whether it is handed the metadata connection, the
// user-objects connection, or a transaction over either.
type Queryer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Lock is a held exclusive lock over the metadata table, released when the
// enclosing transaction or connection scope ends.
type Lock interface {
	Release(ctx context.Context) error
}

// Adapter is the database-vendor-specific capability the core requires:
// current-schema lookup/set, schema existence/create/drop, the statement
// delimiter used to split scripts, whether DDL participates in
// transactions, and a lock primitive compatible with the metadata table's
// concurrency contract. The core never talks to the database directly
// except through this interface and the Queryer it is handed.
type Adapter interface {
	// ProductName identifies the adapter for logging, e.g. "PostgreSQL 16.4".
	ProductName() string

	// CurrentSchema returns the schema that would be used if none was
	// explicitly configured.
	CurrentSchema(ctx context.Context, q Queryer) (string, error)

	// SchemaExists reports whether name exists.
	SchemaExists(ctx context.Context, q Queryer, name string) (bool, error)

	// CreateSchema creates name. Idempotent from the caller's perspective:
	// the caller checks SchemaExists first.
	CreateSchema(ctx context.Context, q Queryer, name string) error

	// DropSchemaContents drops and recreates the schema named name,
	// removing every object inside it along with the schema itself. Only
	// safe to call on a schema the engine created.
	DropSchemaContents(ctx context.Context, q Queryer, name string) error

	// DropSchemaObjects drops every user table inside name, leaving the
	// schema itself in place. Used on schemas the engine did not create.
	DropSchemaObjects(ctx context.Context, q Queryer, name string) error

	// SchemaObjectCount returns the number of user-visible relations in
	// name, used to decide whether a schema is "non-empty" for the
	// initOnMigrate auto-baseline check.
	SchemaObjectCount(ctx context.Context, q Queryer, name string) (int, error)

	// StatementDelimiter returns the textual delimiter this database uses
	// between statements in a script (";" for PostgreSQL).
	StatementDelimiter() string

	// SplitStatements splits a fully placeholder-substituted script into
	// individually executable statements.
	SplitStatements(script string) ([]string, error)

	// SupportsDDLTransactions reports whether the given (already
	// substituted) script's DDL can run inside a transaction. PostgreSQL
	// supports transactional DDL except for statements like
	// CREATE INDEX CONCURRENTLY.
	SupportsDDLTransactions(script string) (bool, error)

	// Lock acquires the engine's cross-process exclusive lock over the
	// metadata table using conn, a connection dedicated to holding it for
	// the lifetime of the returned Lock. Blocks until any other engine
	// instance holding the lock releases it.
	Lock(ctx context.Context, conn *pgxpool.Conn) (Lock, error)
}
