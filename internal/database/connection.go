package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultMaxConns = 5

// NewPool creates a pgx connection pool for the given database URL.
// It parses the connection string, sets a conservative max connection limit,
// and pings the database to verify connectivity.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabaseURL, err)
	}

	poolCfg.MaxConns = defaultMaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return pool, nil
}

// AcquireTwo hands out the two strictly-separated connections the engine
// requires for a mutating command: one for the metadata table (ledger reads,
// writes, and locking) and one for user-objects DDL. Both are acquired from
// the same pool but must never be reused across roles or share a
// transaction. The caller must release both, in any order, on every exit
// path.
func AcquireTwo(ctx context.Context, pool *pgxpool.Pool) (metadataConn, userConn *pgxpool.Conn, err error) {
	metadataConn, err = pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquiring metadata table connection: %w", err)
	}

	userConn, err = pool.Acquire(ctx)
	if err != nil {
		metadataConn.Release()

		return nil, nil, fmt.Errorf("acquiring user-objects connection: %w", err)
	}

	return metadataConn, userConn, nil
}
