// Package metadata implements the on-database ledger: the metadata table
// protocol of CRUD plus locking that every engine instance reads and writes
// through, and the point of mutual exclusion between concurrent runners.
package metadata

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowmigrate/flowmigrate/internal/database"
	"github.com/flowmigrate/flowmigrate/internal/migration"
	"github.com/flowmigrate/flowmigrate/internal/version"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// Table is the ledger implementation bound to a single metadata connection.
type Table struct {
	conn    *pgxpool.Conn
	adapter database.Adapter
	name    string
}

// New builds a Table bound to conn for the schema-qualified table name.
func New(conn *pgxpool.Conn, adapter database.Adapter, table string) (*Table, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}

	return &Table{conn: conn, adapter: adapter, name: table}, nil
}

// Exists reports whether the ledger table has been created.
func (t *Table) Exists(ctx context.Context) (bool, error) {
	schema, relation := splitQualified(t.name)

	var exists bool

	err := t.conn.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM information_schema.tables
			WHERE (table_schema = $1 OR $1 = '') AND table_name = $2
		)`,
		schema, relation,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking metadata table existence: %w", err)
	}

	return exists, nil
}

func splitQualified(name string) (schema, relation string) {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i], name[i+1:]
		}
	}

	return "", name
}

// CreateIfNotExists issues the DDL creating the ledger table and its
// installed_rank index. Idempotent.
func (t *Table) CreateIfNotExists(ctx context.Context) error {
	if _, err := t.conn.Exec(ctx, createTableSQL(t.name)); err != nil {
		return fmt.Errorf("creating metadata table %s: %w", t.name, err)
	}

	_, relation := splitQualified(t.name)
	indexName := relation + "_installed_rank_idx"

	if _, err := t.conn.Exec(ctx, createIndexSQL(t.name, indexName)); err != nil {
		return fmt.Errorf("creating metadata table index on %s: %w", t.name, err)
	}

	return nil
}

// Lock acquires the engine's cross-process exclusive lock over the ledger,
// via the adapter's lock primitive on this Table's dedicated connection.
func (t *Table) Lock(ctx context.Context) (database.Lock, error) {
	return t.adapter.Lock(ctx, t.conn)
}

// CurrentUser returns the database role the metadata connection is
// authenticated as, used to populate installed_by on new ledger rows.
func (t *Table) CurrentUser(ctx context.Context) string {
	return currentUser(ctx, t.conn)
}

// AllApplied returns every ledger row ordered by installed_rank.
func (t *Table) AllApplied(ctx context.Context) ([]migration.AppliedMigration, error) {
	rows, err := t.conn.Query(ctx, fmt.Sprintf(
		`SELECT installed_rank, version, description, type, script, checksum,
		        installed_by, installed_on, execution_time, success, current
		 FROM %s ORDER BY installed_rank`, t.name))
	if err != nil {
		return nil, fmt.Errorf("querying metadata table: %w", err)
	}
	defer rows.Close()

	applied, err := pgx.CollectRows(rows, scanApplied)
	if err != nil {
		return nil, fmt.Errorf("scanning metadata table rows: %w", err)
	}

	return applied, nil
}

func scanApplied(row pgx.CollectableRow) (migration.AppliedMigration, error) {
	var (
		m          migration.AppliedMigration
		rawVersion string
		rawType    string
		execMs     int
	)

	err := row.Scan(
		&m.InstalledRank, &rawVersion, &m.Description, &rawType, &m.Script, &m.Checksum,
		&m.InstalledBy, &m.InstalledOn, &execMs, &m.Success, &m.Current,
	)
	if err != nil {
		return migration.AppliedMigration{}, err
	}

	v, err := version.Parse(rawVersion)
	if err != nil {
		return migration.AppliedMigration{}, fmt.Errorf("parsing stored version %q: %w", rawVersion, err)
	}

	m.Version = v
	m.Type = migration.Type(rawType)
	m.ExecutionTime = time.Duration(execMs) * time.Millisecond

	return m, nil
}

// AddParams carries the fields needed to append a new ledger row.
type AddParams struct {
	Version       version.Version
	Description   string
	Type          migration.Type
	Script        string
	Checksum      *int32
	InstalledBy   string
	ExecutionTime time.Duration
	Success       bool
}

// AddApplied inserts a new row, computing installed_rank as max(rank)+1. The
// current flag only ever moves onto a successful row whose version is above
// the current row's: a failed migration's row, or an out-of-order row below
// the current version, is inserted with current=false and the prior current
// row is left untouched, so current always names the highest success=true
// version.
func (t *Table) AddApplied(ctx context.Context, p AddParams) error {
	tx, err := t.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning metadata transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on committed tx returns ErrTxClosed

	var nextRank int64

	err = tx.QueryRow(ctx, fmt.Sprintf(`SELECT COALESCE(MAX(installed_rank), 0) + 1 FROM %s`, t.name)).Scan(&nextRank)
	if err != nil {
		return fmt.Errorf("computing next installed_rank: %w", err)
	}

	makeCurrent := p.Success

	if p.Success {
		rows, err := tx.Query(ctx, fmt.Sprintf(`SELECT version FROM %s WHERE current`, t.name))
		if err != nil {
			return fmt.Errorf("reading current row: %w", err)
		}

		currentVersions, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("scanning current row: %w", err)
		}

		for _, raw := range currentVersions {
			if cur, perr := version.Parse(raw); perr == nil && cur.GreaterThan(p.Version) {
				makeCurrent = false
			}
		}
	}

	if makeCurrent {
		_, err = tx.Exec(ctx, fmt.Sprintf(`UPDATE %s SET current = FALSE`, t.name))
		if err != nil {
			return fmt.Errorf("clearing current flag: %w", err)
		}
	}

	_, err = tx.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (version_rank, installed_rank, version, description, type, script, checksum,
		                  installed_by, execution_time, success, current)
		 VALUES ($1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, t.name),
		nextRank, p.Version.String(), p.Description, string(p.Type), p.Script, p.Checksum,
		p.InstalledBy, p.ExecutionTime.Milliseconds(), p.Success, makeCurrent,
	)
	if err != nil {
		return fmt.Errorf("inserting applied migration %s: %w", p.Version, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing applied migration %s: %w", p.Version, err)
	}

	return nil
}

// Init inserts a synthetic INIT row at version marking the baseline. Fails
// if the ledger is non-empty.
func (t *Table) Init(ctx context.Context, v version.Version, description string) error {
	var count int64

	if err := t.conn.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t.name)).Scan(&count); err != nil {
		return fmt.Errorf("checking metadata table emptiness: %w", err)
	}

	if count > 0 {
		return ErrNonEmptyLedger
	}

	return t.AddApplied(ctx, AddParams{
		Version:     v,
		Description: description,
		Type:        migration.TypeInit,
		Script:      "",
		InstalledBy: currentUser(ctx, t.conn),
		Success:     true,
	})
}

// SchemasCreated inserts a synthetic SCHEMA row recording that the engine
// itself created the named schemas, which authorizes a later clean to drop
// them.
func (t *Table) SchemasCreated(ctx context.Context, names []string) error {
	return t.AddApplied(ctx, AddParams{
		Version:     version.Empty,
		Description: fmt.Sprintf("schemas created: %s", joinNames(names)),
		Type:        migration.TypeSchema,
		Script:      "",
		InstalledBy: currentUser(ctx, t.conn),
		Success:     true,
	})
}

func joinNames(names []string) string {
	out := ""

	for i, n := range names {
		if i > 0 {
			out += ", "
		}

		out += n
	}

	return out
}

// UpdateChecksum reconciles a resolved-migration checksum change, used by
// Repair.
func (t *Table) UpdateChecksum(ctx context.Context, v version.Version, newChecksum *int32) error {
	tag, err := t.conn.Exec(ctx, fmt.Sprintf(`UPDATE %s SET checksum = $1 WHERE version = $2`, t.name),
		newChecksum, v.String())
	if err != nil {
		return fmt.Errorf("updating checksum for %s: %w", v, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrMigrationNotFound, v)
	}

	return nil
}

func currentUser(ctx context.Context, q database.Queryer) string {
	var user string
	if err := q.QueryRow(ctx, "SELECT current_user").Scan(&user); err != nil {
		return "unknown"
	}

	return user
}
