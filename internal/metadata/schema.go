package metadata

import "fmt"

// createTableSQL is the DDL for the ledger table, matching the logical
// schema: a legacy version_rank column kept for compatibility with tools
// that still read it, installed_rank driving all real ordering, and the
// single-row current invariant enforced by AddApplied rather than by a
// database constraint (Postgres has no "exactly one true" constraint short
// of a partial unique index, which would fight the transactional swap in
// AddApplied).
func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    version_rank    INTEGER,
    installed_rank  INTEGER NOT NULL,
    version         TEXT NOT NULL PRIMARY KEY,
    description     TEXT NOT NULL,
    type            TEXT NOT NULL,
    script          TEXT NOT NULL,
    checksum        INTEGER,
    installed_by    TEXT NOT NULL,
    installed_on    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    execution_time  INTEGER NOT NULL,
    success         BOOLEAN NOT NULL,
    current         BOOLEAN NOT NULL DEFAULT FALSE
)`, table)
}

func createIndexSQL(table, indexName string) string {
	return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (installed_rank)`, indexName, table)
}
