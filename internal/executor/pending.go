package executor

import (
	"fmt"

	"github.com/flowmigrate/flowmigrate/internal/enginerr"
	"github.com/flowmigrate/flowmigrate/internal/migration"
	"github.com/flowmigrate/flowmigrate/internal/version"
)

// Plan is the result of computing the pending set: the migrations to apply,
// in ascending version order, plus any non-fatal warnings surfaced along
// the way.
type Plan struct {
	Pending  []migration.ResolvedMigration
	Warnings []string
}

// head returns the highest version with a successful applied row, or
// version.Empty if none.
func head(applied []migration.AppliedMigration) version.Version {
	h := version.Empty

	for _, a := range applied {
		if a.Success && a.Version.GreaterThan(h) {
			h = a.Version
		}
	}

	return h
}

// computePlan implements the pending-set computation: HEAD detection,
// out-of-order filtering, and FUTURE-row handling.
func computePlan(
	catalog migration.Catalog,
	applied []migration.AppliedMigration,
	target version.Version,
	outOfOrder bool,
	ignoreFailedFuture bool,
) (Plan, error) {
	h := head(applied)
	maxCatalog := catalog.MaxVersion()

	successByVersion := make(map[string]bool, len(applied))

	for _, a := range applied {
		if a.Success {
			successByVersion[a.Version.String()] = true
		}
	}

	// FUTURE rows: applied rows with version > max catalog version.
	var futureAbort bool

	for _, a := range applied {
		if maxCatalog.IsEmpty() || !a.Version.GreaterThan(maxCatalog) {
			continue
		}

		if !a.Success {
			if !ignoreFailedFuture {
				return Plan{}, enginerr.New(enginerr.FailedFuture,
					fmt.Sprintf("applied migration %s failed and is beyond the resolved catalog's maximum version %s", a.Version, maxCatalog)).
					WithVersion(a.Version.String())
			}

			futureAbort = true
		}
	}

	if futureAbort {
		return Plan{Warnings: []string{"ignoring failed future migration, aborting migration run with nothing applied"}}, nil
	}

	var (
		pending  []migration.ResolvedMigration
		warnings []string
	)

	for _, m := range catalog {
		if m.Version.GreaterThan(target) {
			continue
		}

		if successByVersion[m.Version.String()] {
			continue
		}

		if m.Version.GreaterThan(h) {
			pending = append(pending, m)
			continue
		}

		// m.Version <= HEAD and not yet successfully applied.
		if outOfOrder {
			pending = append(pending, m)
		} else {
			warnings = append(warnings, fmt.Sprintf("ignoring out-of-order migration %s (below head %s)", m.Version, h))
		}
	}

	return Plan{Pending: migration.Sort(pending), Warnings: warnings}, nil
}
