package executor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowmigrate/flowmigrate/internal/migration"
)

// Tx is the minimal transaction surface the executor needs: running SQL,
// then committing or rolling back. pgx.Tx satisfies it structurally, so
// production code never constructs a Tx value directly.
type Tx interface {
	migration.SQLExecutor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Beginner starts a Tx on a connection.
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// PoolConn adapts a *pgxpool.Conn to the Beginner and migration.SQLExecutor
// surface Executor requires. pgx.Tx's method set is a superset of Tx's, so
// the pgx.Tx returned by the underlying Begin converts implicitly.
type PoolConn struct {
	*pgxpool.Conn
}

// Begin implements Beginner.
func (p PoolConn) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.Conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return tx, nil
}

// ExecInTransaction runs fn inside a transaction on conn. On success the
// transaction is committed; on error it is rolled back.
func ExecInTransaction(ctx context.Context, conn Beginner, fn func(tx Tx) error) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // rollback on committed tx returns ErrTxClosed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// ExecWithoutTransaction executes sql directly on exec, outside any
// transaction. Required for statements like CREATE INDEX CONCURRENTLY which
// cannot run inside a transaction block.
func ExecWithoutTransaction(ctx context.Context, exec migration.SQLExecutor, sql string) error {
	if _, err := exec.Exec(ctx, sql); err != nil {
		return fmt.Errorf("executing outside transaction: %w", err)
	}

	return nil
}
