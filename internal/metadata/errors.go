package metadata

import "errors"

// ErrInvalidTableName indicates the configured table name is not a safe SQL
// identifier.
var ErrInvalidTableName = errors.New("invalid metadata table name")

// ErrMigrationNotFound indicates no ledger row exists for the given version.
var ErrMigrationNotFound = errors.New("version not found in metadata table")

// ErrNonEmptyLedger indicates init was invoked on a ledger that already has
// rows.
var ErrNonEmptyLedger = errors.New("cannot init: metadata table is not empty")

// ErrRepairInvariant indicates repair could not re-establish the ledger's
// invariants.
var ErrRepairInvariant = errors.New("repair could not re-establish metadata table invariants")
