package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowmigrate/flowmigrate/internal/parser"
)

// PostgresAdapter implements Adapter for PostgreSQL, built on pgx. It is the
// one concrete adapter shipped with this engine; NewAdapter is its factory.
type PostgresAdapter struct {
	productName string
}

// NewAdapter inspects the connection's product name/version and returns the
// matching Adapter. PostgreSQL is the only supported product.
func NewAdapter(ctx context.Context, q Queryer) (Adapter, error) {
	var version string

	if err := q.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return nil, fmt.Errorf("detecting database product: %w", err)
	}

	return &PostgresAdapter{productName: firstWord(version, 2)}, nil
}

func firstWord(s string, words int) string {
	parts := strings.Fields(s)
	if len(parts) < words {
		words = len(parts)
	}

	return strings.Join(parts[:words], " ")
}

// ProductName implements Adapter.
func (a *PostgresAdapter) ProductName() string {
	return a.productName
}

// CurrentSchema implements Adapter.
func (a *PostgresAdapter) CurrentSchema(ctx context.Context, q Queryer) (string, error) {
	var schema string

	if err := q.QueryRow(ctx, "SELECT current_schema()").Scan(&schema); err != nil {
		return "", fmt.Errorf("querying current schema: %w", err)
	}

	return schema, nil
}

// SchemaExists implements Adapter.
func (a *PostgresAdapter) SchemaExists(ctx context.Context, q Queryer, name string) (bool, error) {
	var exists bool

	err := q.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)",
		name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking schema %s existence: %w", name, err)
	}

	return exists, nil
}

// CreateSchema implements Adapter.
func (a *PostgresAdapter) CreateSchema(ctx context.Context, q Queryer, name string) error {
	_, err := q.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", quoteIdent(name)))
	if err != nil {
		return fmt.Errorf("creating schema %s: %w", name, err)
	}

	return nil
}

// DropSchemaContents implements Adapter. It drops and recreates the schema,
// which removes every object inside it without requiring an object-by-object
// enumeration.
func (a *PostgresAdapter) DropSchemaContents(ctx context.Context, q Queryer, name string) error {
	ident := quoteIdent(name)

	if _, err := q.Exec(ctx, fmt.Sprintf("DROP SCHEMA %s CASCADE", ident)); err != nil {
		return fmt.Errorf("dropping schema %s: %w", name, err)
	}

	if _, err := q.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", ident)); err != nil {
		return fmt.Errorf("recreating schema %s: %w", name, err)
	}

	return nil
}

// DropSchemaObjects implements Adapter. It enumerates the schema's tables
// and drops each individually, leaving the schema namespace itself intact.
func (a *PostgresAdapter) DropSchemaObjects(ctx context.Context, q Queryer, name string) error {
	rows, err := q.Query(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = $1", name)
	if err != nil {
		return fmt.Errorf("listing tables in schema %s: %w", name, err)
	}

	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("scanning tables in schema %s: %w", name, err)
	}

	for _, table := range tables {
		ident := quoteIdent(name) + "." + quoteIdent(table)

		if _, err := q.Exec(ctx, fmt.Sprintf("DROP TABLE %s CASCADE", ident)); err != nil {
			return fmt.Errorf("dropping table %s: %w", ident, err)
		}
	}

	return nil
}

// SchemaObjectCount implements Adapter.
func (a *PostgresAdapter) SchemaObjectCount(ctx context.Context, q Queryer, name string) (int, error) {
	var count int

	err := q.QueryRow(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1",
		name,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting objects in schema %s: %w", name, err)
	}

	return count, nil
}

// StatementDelimiter implements Adapter.
func (a *PostgresAdapter) StatementDelimiter() string {
	return ";"
}

// SplitStatements implements Adapter using the real PostgreSQL parser rather
// than a naive split on ";", so delimiters inside string literals, dollar
// quoting, and function bodies are handled correctly.
func (a *PostgresAdapter) SplitStatements(script string) ([]string, error) {
	result, err := parser.Parse(script)
	if err != nil {
		return nil, fmt.Errorf("splitting statements: %w", err)
	}

	stmts := make([]string, 0, len(result.Stmts))

	for i := range result.Stmts {
		stmt := extractStatementSQL(result.Stmts, i, script)
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}

	return stmts, nil
}

func extractStatementSQL(stmts []*pg_query.RawStmt, idx int, fullSQL string) string {
	start := int(stmts[idx].StmtLocation)

	end := len(fullSQL)
	if idx+1 < len(stmts) {
		end = int(stmts[idx+1].StmtLocation)
	}

	if start > len(fullSQL) || end > len(fullSQL) || start >= end {
		return ""
	}

	return strings.TrimSpace(fullSQL[start:end])
}

// SupportsDDLTransactions implements Adapter. PostgreSQL runs DDL
// transactionally except CREATE INDEX CONCURRENTLY, which cannot appear
// inside a transaction block.
func (a *PostgresAdapter) SupportsDDLTransactions(script string) (bool, error) {
	result, err := parser.Parse(script)
	if err != nil {
		return false, fmt.Errorf("checking DDL transactional support: %w", err)
	}

	for _, stmt := range result.Stmts {
		node, ok := stmt.Stmt.Node.(*pg_query.Node_IndexStmt)
		if ok && node.IndexStmt != nil && node.IndexStmt.Concurrent {
			return false, nil
		}
	}

	return true, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// compile-time assertion that *pgxpool.Conn satisfies Queryer.
var _ Queryer = (*pgxpool.Conn)(nil)
