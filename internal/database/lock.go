package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrationLockID is the advisory lock identifier used to serialize
// mutating commands across engine instances.
const migrationLockID int64 = 85211951 // arbitrary, stable across releases

// advisoryLock wraps a pooled connection holding a session-level advisory
// lock. Release unlocks and returns conn to the pool.
type advisoryLock struct {
	conn *pgxpool.Conn
}

// Lock implements Adapter.Lock using pg_advisory_lock, which blocks until
// acquired rather than failing fast: the metadata table's concurrency
// contract requires the second caller to wait, not to error out.
func (a *PostgresAdapter) Lock(ctx context.Context, conn *pgxpool.Conn) (Lock, error) {
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return nil, fmt.Errorf("acquiring metadata table lock: %w", err)
	}

	return &advisoryLock{conn: conn}, nil
}

// Release implements Lock.
func (l *advisoryLock) Release(ctx context.Context) error {
	if l == nil || l.conn == nil {
		return nil
	}

	_, err := l.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID)
	l.conn = nil

	if err != nil {
		return fmt.Errorf("releasing metadata table lock: %w", err)
	}

	return nil
}

// RowLock is the documented fallback lock primitive for database adapters
// without an advisory lock: SELECT ... FOR UPDATE on a sentinel row in the
// metadata table. It is not used by PostgresAdapter (which has a real
// advisory lock) but is kept available for adapters that need it.
type RowLock struct {
	tx Queryer
}

// AcquireRowLock takes the row lock inside tx. The lock is released when tx
// is committed or rolled back, so Release is a documented no-op: callers
// must end the enclosing transaction to actually release it.
func AcquireRowLock(ctx context.Context, tx Queryer, table string) (*RowLock, error) {
	sql := fmt.Sprintf(`SELECT 1 FROM %s WHERE installed_rank = 0 FOR UPDATE`, quoteIdent(table))

	if _, err := tx.Exec(ctx, sql); err != nil {
		return nil, fmt.Errorf("acquiring row lock on %s: %w", table, err)
	}

	return &RowLock{tx: tx}, nil
}

// Release is a no-op: the row lock is released by the enclosing
// transaction's commit or rollback, not by this call.
func (l *RowLock) Release(_ context.Context) error {
	return nil
}
