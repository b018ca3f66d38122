// Package executor computes the pending set of migrations and applies them
// against the user-objects connection, recording each outcome on the
// metadata connection.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowmigrate/flowmigrate/internal/database"
	"github.com/flowmigrate/flowmigrate/internal/enginerr"
	"github.com/flowmigrate/flowmigrate/internal/metadata"
	"github.com/flowmigrate/flowmigrate/internal/migration"
	"github.com/flowmigrate/flowmigrate/internal/version"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// ProgressEvent is emitted by the executor for each pending migration.
type ProgressEvent struct {
	Migration migration.ResolvedMigration
	Status    string
	Duration  time.Duration
	Error     error
}

// Options configures Apply.
type Options struct {
	Target             version.Version // version.Latest if unset
	OutOfOrder         bool
	IgnoreFailedFuture bool
	DryRun             bool
	LockTimeout        time.Duration
	StatementTimeout   time.Duration
	OnProgress         func(ProgressEvent)
	Logger             *slog.Logger
}

// Result is the outcome of a migrate run.
type Result struct {
	Applied  int
	Warnings []string
}

// Ledger is the slice of metadata.Table the executor needs: reading the
// ledger, appending outcomes, and identifying the acting database role.
// Declaring it locally keeps this package testable without a database.
type Ledger interface {
	AllApplied(ctx context.Context) ([]migration.AppliedMigration, error)
	AddApplied(ctx context.Context, p metadata.AddParams) error
	CurrentUser(ctx context.Context) string
}

// Executor applies the pending set against a single user-objects connection,
// recording outcomes through a Ledger bound to a separate connection. The
// two are never shared across a transaction.
type Executor struct {
	ledger  Ledger
	adapter database.Adapter
	userTx  Beginner
	userRaw migration.SQLExecutor
	opts    Options
	logger  *slog.Logger
}

// New constructs an Executor. userConn must satisfy both Beginner (to start
// a transaction) and migration.SQLExecutor (to run DDL directly, for
// statements that cannot be transactional).
func New(ledger Ledger, adapter database.Adapter, userConn interface {
	Beginner
	migration.SQLExecutor
}, opts Options,
) *Executor {
	if opts.Target.IsEmpty() && !opts.Target.IsLatest() {
		opts.Target = version.Latest
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{ledger: ledger, adapter: adapter, userTx: userConn, userRaw: userConn, opts: opts, logger: logger}
}

// Apply computes the pending set against catalog and the current ledger
// state, then applies each pending migration in order, halting on the first
// failure.
func (e *Executor) Apply(ctx context.Context, catalog migration.Catalog) (Result, error) {
	applied, err := e.ledger.AllApplied(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("reading ledger: %w", err)
	}

	plan, err := computePlan(catalog, applied, e.opts.Target, e.opts.OutOfOrder, e.opts.IgnoreFailedFuture)
	if err != nil {
		return Result{}, err
	}

	for _, w := range plan.Warnings {
		e.logger.Warn(w)
	}

	if e.opts.DryRun {
		for _, m := range plan.Pending {
			e.fireProgress(ProgressEvent{Migration: m, Status: StatusSkipped})
		}

		return Result{Applied: 0, Warnings: plan.Warnings}, nil
	}

	installedBy := e.ledger.CurrentUser(ctx)
	count := 0

	for _, m := range plan.Pending {
		if err := e.applyOne(ctx, m, installedBy); err != nil {
			return Result{Applied: count, Warnings: plan.Warnings}, err
		}

		count++
	}

	return Result{Applied: count, Warnings: plan.Warnings}, nil
}

func (e *Executor) applyOne(ctx context.Context, m migration.ResolvedMigration, installedBy string) error {
	e.fireProgress(ProgressEvent{Migration: m, Status: StatusStarting})

	transactional, err := e.supportsTransaction(m)
	if err != nil {
		return err
	}

	start := time.Now()
	execErr := e.run(ctx, m, transactional)
	duration := time.Since(start)

	record := metadata.AddParams{
		Version:       m.Version,
		Description:   m.Description,
		Type:          m.Type,
		Script:        m.Script,
		Checksum:      m.Checksum,
		InstalledBy:   installedBy,
		ExecutionTime: duration,
		Success:       execErr == nil,
	}

	if recordErr := e.ledger.AddApplied(ctx, record); recordErr != nil {
		if execErr != nil {
			return fmt.Errorf("recording failed migration %s: %w (apply error: %v)", m.Version, recordErr, execErr)
		}

		return fmt.Errorf("recording applied migration %s: %w", m.Version, recordErr)
	}

	if execErr != nil {
		e.fireProgress(ProgressEvent{Migration: m, Status: StatusFailed, Duration: duration, Error: execErr})

		return enginerr.Wrap(enginerr.MigrationFailed,
			fmt.Sprintf("applying migration %s", m.Version), execErr).WithVersion(m.Version.String()).WithScript(m.Script)
	}

	e.fireProgress(ProgressEvent{Migration: m, Status: StatusCompleted, Duration: duration})

	return nil
}

// supportsTransaction asks the migration's Renderer, if it has one, for the
// substituted script and checks it against the adapter. CodeMigrations have
// no Renderer and always run transactionally.
func (e *Executor) supportsTransaction(m migration.ResolvedMigration) (bool, error) {
	renderer, ok := m.Apply.(migration.Renderer)
	if !ok {
		return true, nil
	}

	script, err := renderer.Render()
	if err != nil {
		return false, err
	}

	ok, err = e.adapter.SupportsDDLTransactions(script)
	if err != nil {
		return false, fmt.Errorf("checking DDL transactional support for %s: %w", m.Script, err)
	}

	return ok, nil
}

func (e *Executor) run(ctx context.Context, m migration.ResolvedMigration, transactional bool) error {
	if !transactional {
		return m.Apply.Apply(ctx, e.userRaw)
	}

	return ExecInTransaction(ctx, e.userTx, func(tx Tx) error {
		if e.opts.LockTimeout > 0 {
			if err := SetLockTimeout(ctx, tx, e.opts.LockTimeout); err != nil {
				return err
			}
		}

		if e.opts.StatementTimeout > 0 {
			if err := SetStatementTimeout(ctx, tx, e.opts.StatementTimeout); err != nil {
				return err
			}
		}

		return m.Apply.Apply(ctx, tx)
	})
}

func (e *Executor) fireProgress(event ProgressEvent) {
	if e.opts.OnProgress != nil {
		e.opts.OnProgress(event)
	}
}
