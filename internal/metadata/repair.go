package metadata

import (
	"context"
	"fmt"
)

// Repair restores the ledger's invariants after a failed migration: trailing
// failed rows (the contiguous run of success=false rows at the highest
// installed_rank) are deleted outright, since nothing was ever recorded
// after them and they simply never happened from the ledger's perspective.
// A failed row that is not part of that trailing run — which should not
// occur under normal operation, since the executor halts application on the
// first failure — is left in place rather than silently dropped; its
// checksum can still be reconciled via UpdateChecksum. Afterward the current
// invariant is re-established over whatever rows remain.
func (t *Table) Repair(ctx context.Context) error {
	tx, err := t.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning repair transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on committed tx returns ErrTxClosed

	rows, err := tx.Query(ctx, fmt.Sprintf(
		`SELECT installed_rank, success FROM %s ORDER BY installed_rank DESC`, t.name))
	if err != nil {
		return fmt.Errorf("reading metadata table for repair: %w", err)
	}

	var tailFailures []int64

	for rows.Next() {
		var rank int64

		var success bool

		if err := rows.Scan(&rank, &success); err != nil {
			rows.Close()

			return fmt.Errorf("scanning metadata table row during repair: %w", err)
		}

		if success {
			break
		}

		tailFailures = append(tailFailures, rank)
	}

	rows.Close()

	for _, rank := range tailFailures {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE installed_rank = $1`, t.name), rank); err != nil {
			return fmt.Errorf("deleting failed migration at rank %d: %w", rank, err)
		}
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(`UPDATE %s SET current = FALSE`, t.name)); err != nil {
		return fmt.Errorf("clearing current flag during repair: %w", err)
	}

	_, err = tx.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET current = TRUE WHERE installed_rank = (SELECT MAX(installed_rank) FROM %s)`,
		t.name, t.name))
	if err != nil {
		return fmt.Errorf("re-establishing current row during repair: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing repair: %w", err)
	}

	return nil
}
