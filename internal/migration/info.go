package migration

import (
	"time"

	"github.com/flowmigrate/flowmigrate/internal/version"
)

// Info is the unified view combining an optional resolved migration and an
// optional applied ledger row for a single version.
type Info struct {
	Version       version.Version
	Description   string
	Type          Type
	Script        string
	InstalledOn   time.Time
	ExecutionTime time.Duration
	State         State

	Resolved *ResolvedMigration
	Applied  *AppliedMigration
}
