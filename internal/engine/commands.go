package engine

import (
	"context"
	"fmt"

	"github.com/flowmigrate/flowmigrate/internal/enginerr"
	"github.com/flowmigrate/flowmigrate/internal/executor"
	"github.com/flowmigrate/flowmigrate/internal/info"
	"github.com/flowmigrate/flowmigrate/internal/metadata"
	"github.com/flowmigrate/flowmigrate/internal/migration"
	"github.com/flowmigrate/flowmigrate/internal/version"
)

// Options carries the per-invocation overrides a command honors on top of
// the Engine's configuration snapshot (e.g. dry-run and progress reporting
// for Migrate), so callers never mutate the shared *config.Config.
type Options struct {
	DryRun     bool
	OnProgress func(executor.ProgressEvent)
}

// Migrate implements spec.md §4.7's migrate command: lock, schema
// auto-create, optional pre-validate, optional init, resolve, apply. The
// lock is taken as the first mutating step, before schema auto-create, so
// two concurrent first-time runs against an empty schema serialize instead
// of racing CreateSchema.
func (e *Engine) Migrate(ctx context.Context, opts Options) (executor.Result, error) {
	sess, err := e.open(ctx)
	if err != nil {
		return executor.Result{}, err
	}
	defer sess.close()

	lock, err := sess.table.Lock(ctx)
	if err != nil {
		return executor.Result{}, enginerr.Wrap(enginerr.LedgerUnavailable, "acquiring metadata table lock", err)
	}
	defer lock.Release(ctx) //nolint:errcheck // best-effort release on an already-failing path

	created, err := ensureSchemas(ctx, sess.adapter, sess.metaConn, sess.schemas)
	if err != nil {
		return executor.Result{}, enginerr.Wrap(enginerr.ConfigError, "auto-creating schemas", err)
	}

	if err := sess.table.CreateIfNotExists(ctx); err != nil {
		return executor.Result{}, enginerr.Wrap(enginerr.LedgerUnavailable, "ensuring metadata table", err)
	}

	if len(created) > 0 {
		if err := sess.table.SchemasCreated(ctx, created); err != nil {
			return executor.Result{}, enginerr.Wrap(enginerr.LedgerUnavailable, "recording created schemas", err)
		}
	}

	if e.cfg.ValidateOnMigrate {
		if handled, err := e.preValidate(ctx, sess); err != nil || handled {
			return executor.Result{}, err
		}
	}

	if e.cfg.DisableInitCheck && e.cfg.InitOnMigrate {
		e.logger.Warn("both disableInitCheck and initOnMigrate are set; initOnMigrate is authoritative")
	}

	if e.cfg.InitOnMigrate {
		if err := e.maybeInit(ctx, sess); err != nil {
			return executor.Result{}, err
		}
	}

	catalog, _, err := e.resolveCatalog(ctx, sess.adapter)
	if err != nil {
		return executor.Result{}, err
	}

	target, err := e.targetVersion()
	if err != nil {
		return executor.Result{}, err
	}

	ex := executor.New(sess.table, sess.adapter, executor.PoolConn{Conn: sess.userConn}, executor.Options{
		Target:             target,
		OutOfOrder:         e.cfg.OutOfOrder,
		IgnoreFailedFuture: e.cfg.IgnoreFailedFutureMigration,
		DryRun:             opts.DryRun,
		LockTimeout:        e.cfg.LockTimeout,
		StatementTimeout:   e.cfg.StatementTimeout,
		OnProgress:         opts.OnProgress,
		Logger:             e.logger,
	})

	return ex.Apply(ctx, catalog)
}

// preValidate runs validate as part of migrate when validateOnMigrate is
// set. handled=true means the caller should return immediately: either
// validation passed (nothing to report) is NOT handled=true — only a
// validation failure that cleanOnValidationError absorbed returns
// handled=true with a nil error, short-circuiting migrate cleanly.
func (e *Engine) preValidate(ctx context.Context, sess *session) (handled bool, err error) {
	mismatch, err := e.validateSession(ctx, sess)
	if err != nil {
		return false, err
	}

	if mismatch == "" {
		return false, nil
	}

	if e.cfg.CleanOnValidationError {
		e.logger.Warn("validation failed before migrate; cleaning configured schemas", "reason", mismatch)

		if err := e.cleanSession(ctx, sess); err != nil {
			return false, err
		}

		return true, nil
	}

	return false, enginerr.New(enginerr.ValidationFailed, mismatch)
}

// maybeInit inserts the baseline INIT row when the ledger is empty but the
// default schema already holds user objects — the auto-baseline behavior
// spec.md §4.7 step 5 gates behind initOnMigrate.
func (e *Engine) maybeInit(ctx context.Context, sess *session) error {
	applied, err := sess.table.AllApplied(ctx)
	if err != nil {
		return enginerr.Wrap(enginerr.LedgerUnavailable, "reading ledger for init check", err)
	}

	if len(applied) > 0 {
		return nil
	}

	count, err := sess.adapter.SchemaObjectCount(ctx, sess.metaConn, sess.schemas[0])
	if err != nil {
		return enginerr.Wrap(enginerr.ConfigError, "checking schema contents for init", err)
	}

	if count == 0 {
		return nil
	}

	v, err := version.Parse(e.cfg.InitVersion)
	if err != nil {
		return enginerr.Wrap(enginerr.ConfigError, "parsing initVersion", err)
	}

	if err := sess.table.Init(ctx, v, e.cfg.InitDescription); err != nil {
		return enginerr.Wrap(enginerr.UnexpectedState, "auto-init on migrate", err)
	}

	return nil
}

// Info implements spec.md §4.7's info command: a read-only join of catalog
// and ledger, acquiring no lock per the concurrency model's reader path.
func (e *Engine) Info(ctx context.Context) ([]migration.Info, error) {
	sess, err := e.open(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	applied, catalog, err := e.gather(ctx, sess)
	if err != nil {
		return nil, err
	}

	return info.New(catalog, applied, e.cfg.OutOfOrder).All(), nil
}

// Validate implements spec.md §4.7's validate command.
func (e *Engine) Validate(ctx context.Context) error {
	sess, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	mismatch, err := e.validateSession(ctx, sess)
	if err != nil {
		return err
	}

	if mismatch != "" {
		return enginerr.New(enginerr.ValidationFailed, mismatch)
	}

	return nil
}

func (e *Engine) validateSession(ctx context.Context, sess *session) (string, error) {
	applied, catalog, err := e.gather(ctx, sess)
	if err != nil {
		return "", err
	}

	return info.New(catalog, applied, e.cfg.OutOfOrder).Validate(), nil
}

func (e *Engine) gather(ctx context.Context, sess *session) ([]migration.AppliedMigration, migration.Catalog, error) {
	exists, err := sess.table.Exists(ctx)
	if err != nil {
		return nil, nil, enginerr.Wrap(enginerr.LedgerUnavailable, "checking metadata table", err)
	}

	var applied []migration.AppliedMigration

	if exists {
		applied, err = sess.table.AllApplied(ctx)
		if err != nil {
			return nil, nil, enginerr.Wrap(enginerr.LedgerUnavailable, "reading metadata table", err)
		}
	}

	catalog, _, err := e.resolveCatalog(ctx, sess.adapter)
	if err != nil {
		return nil, nil, err
	}

	return applied, catalog, nil
}

// Init implements spec.md §4.7's init command: inserts a synthetic baseline
// row, failing if the ledger already has rows.
func (e *Engine) Init(ctx context.Context) error {
	sess, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	lock, err := sess.table.Lock(ctx)
	if err != nil {
		return enginerr.Wrap(enginerr.LedgerUnavailable, "acquiring metadata table lock", err)
	}
	defer lock.Release(ctx) //nolint:errcheck // best-effort release on an already-failing path

	if err := sess.table.CreateIfNotExists(ctx); err != nil {
		return enginerr.Wrap(enginerr.LedgerUnavailable, "ensuring metadata table", err)
	}

	v, err := version.Parse(e.cfg.InitVersion)
	if err != nil {
		return enginerr.Wrap(enginerr.ConfigError, "parsing initVersion", err)
	}

	if err := sess.table.Init(ctx, v, e.cfg.InitDescription); err != nil {
		return enginerr.Wrap(enginerr.UnexpectedState, "init", err)
	}

	return nil
}

// Repair implements spec.md §4.7's repair command: restores ledger
// invariants, then reconciles any catalog checksum drift against the
// successfully applied rows it still agrees on.
func (e *Engine) Repair(ctx context.Context) error {
	sess, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	lock, err := sess.table.Lock(ctx)
	if err != nil {
		return enginerr.Wrap(enginerr.LedgerUnavailable, "acquiring metadata table lock", err)
	}
	defer lock.Release(ctx) //nolint:errcheck // best-effort release on an already-failing path

	if err := sess.table.Repair(ctx); err != nil {
		return enginerr.Wrap(enginerr.UnexpectedState, "repair", err)
	}

	catalog, _, err := e.resolveCatalog(ctx, sess.adapter)
	if err != nil {
		return err
	}

	applied, err := sess.table.AllApplied(ctx)
	if err != nil {
		return enginerr.Wrap(enginerr.LedgerUnavailable, "reading ledger after repair", err)
	}

	for _, a := range applied {
		if !a.Success {
			continue
		}

		resolved, ok := catalog.Find(a.Version)
		if !ok || checksumsEqual(resolved.Checksum, a.Checksum) {
			continue
		}

		if err := sess.table.UpdateChecksum(ctx, a.Version, resolved.Checksum); err != nil {
			return enginerr.Wrap(enginerr.UnexpectedState, fmt.Sprintf("reconciling checksum for %s", a.Version), err)
		}
	}

	return nil
}

func checksumsEqual(a, b *int32) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

// Clean implements the supplemented clean command (spec.md §9): it drops
// the contents of every configured schema. Whether the schema namespace
// itself is dropped and recreated along with its contents depends on
// whether the engine created it: that is only safe, and only done, when
// the ledger's first row is the SCHEMA synthetic row ensureSchemas wrote at
// auto-create time. Otherwise only the objects inside the schema are
// dropped, leaving a schema clean did not create untouched.
func (e *Engine) Clean(ctx context.Context) error {
	sess, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	lock, err := sess.table.Lock(ctx)
	if err != nil {
		return enginerr.Wrap(enginerr.LedgerUnavailable, "acquiring metadata table lock", err)
	}
	defer lock.Release(ctx) //nolint:errcheck // best-effort release on an already-failing path

	return e.cleanSession(ctx, sess)
}

func (e *Engine) cleanSession(ctx context.Context, sess *session) error {
	engineOwnsSchemas, err := engineCreatedSchemas(ctx, sess.table)
	if err != nil {
		return enginerr.Wrap(enginerr.LedgerUnavailable, "checking ledger for clean", err)
	}

	for _, schema := range sess.schemas {
		var err error

		if engineOwnsSchemas {
			err = sess.adapter.DropSchemaContents(ctx, sess.userConn, schema)
		} else {
			err = sess.adapter.DropSchemaObjects(ctx, sess.userConn, schema)
		}

		if err != nil {
			return enginerr.Wrap(enginerr.ConfigError, fmt.Sprintf("cleaning schema %s", schema), err)
		}
	}

	return nil
}

// engineCreatedSchemas reports whether the ledger's first row is the SCHEMA
// synthetic row, meaning the configured schemas were created by the engine
// itself and are therefore safe for clean to drop and recreate wholesale.
func engineCreatedSchemas(ctx context.Context, table *metadata.Table) (bool, error) {
	exists, err := table.Exists(ctx)
	if err != nil {
		return false, err
	}

	if !exists {
		return false, nil
	}

	applied, err := table.AllApplied(ctx)
	if err != nil {
		return false, err
	}

	return len(applied) > 0 && applied[0].Type == migration.TypeSchema, nil
}
