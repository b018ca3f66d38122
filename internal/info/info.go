// Package info implements the joined view over the resolver's catalog and
// the metadata table's ledger: the engine's read path for info, validate,
// and the current/applied/pending queries the migrate command itself relies
// on to decide what is already done.
package info

import (
	"fmt"
	"sort"

	"github.com/flowmigrate/flowmigrate/internal/migration"
	"github.com/flowmigrate/flowmigrate/internal/version"
)

// Service answers queries over a catalog and ledger snapshot, both already
// materialized by the caller — it performs no I/O itself.
type Service struct {
	catalog migration.Catalog
	applied []migration.AppliedMigration

	outOfOrder bool
}

// New constructs a Service over a resolved catalog and the ledger's current
// rows. outOfOrder matches the engine's configured policy and controls
// whether a below-HEAD catalog entry absent from the ledger is reported as
// PENDING (out-of-order flavor) or OUT_OF_ORDER.
func New(catalog migration.Catalog, applied []migration.AppliedMigration, outOfOrder bool) *Service {
	return &Service{catalog: catalog, applied: applied, outOfOrder: outOfOrder}
}

// Head returns the highest version with a successful applied row.
func (s *Service) Head() version.Version {
	h := version.Empty

	for _, a := range s.applied {
		if a.Success && a.Version.GreaterThan(h) {
			h = a.Version
		}
	}

	return h
}

// All returns one migration.Info per version appearing in the catalog, the
// ledger, or both, sorted ascending by version and then by installed_rank
// for synthetic entries sharing a version with a real migration.
func (s *Service) All() []migration.Info {
	head := s.Head()
	maxCatalog := s.catalog.MaxVersion()

	byVersion := make(map[string]*migration.AppliedMigration, len(s.applied))
	for i := range s.applied {
		byVersion[s.applied[i].Version.String()] = &s.applied[i]
	}

	seen := make(map[string]bool, len(s.catalog)+len(s.applied))

	var infos []migration.Info

	for _, m := range s.catalog {
		m := m
		key := m.Version.String()
		seen[key] = true

		applied := byVersion[key]
		infos = append(infos, buildInfo(&m, applied, head, maxCatalog, s.outOfOrder))
	}

	for i := range s.applied {
		a := &s.applied[i]

		key := a.Version.String()
		if seen[key] {
			continue
		}

		infos = append(infos, buildInfo(nil, a, head, maxCatalog, s.outOfOrder))
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].Version.Equal(infos[j].Version) {
			return infos[i].Version.LessThan(infos[j].Version)
		}

		return installedRank(infos[i].Applied) < installedRank(infos[j].Applied)
	})

	return infos
}

func installedRank(a *migration.AppliedMigration) int64 {
	if a == nil {
		return 0
	}

	return a.InstalledRank
}

// buildInfo derives a single migration.Info per the state derivation table:
// resolved×applied×success×position-relative-to-HEAD → State.
func buildInfo(
	resolved *migration.ResolvedMigration,
	applied *migration.AppliedMigration,
	head, maxCatalog version.Version,
	outOfOrder bool,
) migration.Info {
	info := migration.Info{Resolved: resolved, Applied: applied}

	switch {
	case resolved != nil:
		info.Version, info.Description, info.Type, info.Script = resolved.Version, resolved.Description, resolved.Type, resolved.Script
	case applied != nil:
		info.Version, info.Description, info.Type, info.Script = applied.Version, applied.Description, applied.Type, applied.Script
	}

	switch {
	case resolved != nil && applied != nil:
		info.InstalledOn = applied.InstalledOn
		info.ExecutionTime = applied.ExecutionTime

		if applied.Success {
			info.State = migration.StateSuccess
		} else {
			info.State = migration.StateFailed
		}
	case resolved != nil && applied == nil:
		if resolved.Version.LessThan(head) {
			if outOfOrder {
				info.State = migration.StatePending
			} else {
				info.State = migration.StateOutOfOrder
			}
		} else {
			info.State = migration.StatePending
		}
	case resolved == nil && applied != nil:
		info.InstalledOn = applied.InstalledOn
		info.ExecutionTime = applied.ExecutionTime

		if !maxCatalog.IsEmpty() && applied.Version.GreaterThan(maxCatalog) {
			info.State = migration.StateFuture
		} else if applied.Success {
			info.State = migration.StateMissing
		} else {
			// A failed row absent from the catalog and not beyond it (e.g.
			// the script was deleted after a failed run) still reads as
			// MISSING: it is not a future row, and FAILED only applies when
			// the catalog still resolves the version.
			info.State = migration.StateMissing
		}
	}

	return info
}

// Current returns the MigrationInfo for the ledger's current=true row.
func (s *Service) Current() (migration.Info, bool) {
	for _, info := range s.All() {
		if info.Applied != nil && info.Applied.Current {
			return info, true
		}
	}

	return migration.Info{}, false
}

// Applied returns every info entry present in the ledger, ordered by
// installed_rank.
func (s *Service) Applied() []migration.Info {
	var out []migration.Info

	for _, info := range s.All() {
		if info.Applied != nil {
			out = append(out, info)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Applied.InstalledRank < out[j].Applied.InstalledRank
	})

	return out
}

// Pending returns catalog entries not yet in the ledger, honoring the
// configured out-of-order policy.
func (s *Service) Pending() []migration.Info {
	var out []migration.Info

	for _, info := range s.All() {
		if info.Applied == nil && info.Resolved != nil && info.State == migration.StatePending {
			out = append(out, info)
		}
	}

	return out
}

// Validate returns a non-empty diagnostic when any successfully applied
// ledger entry has a catalog counterpart whose checksum, type, or
// description disagrees (checked in that precedence), or when a catalog
// entry is missing from the ledger at or below HEAD, ignoring synthetic
// types. An empty string means the catalog and ledger agree.
func (s *Service) Validate() string {
	head := s.Head()

	byVersion := make(map[string]migration.ResolvedMigration, len(s.catalog))
	for _, m := range s.catalog {
		byVersion[m.Version.String()] = m
	}

	for _, a := range s.applied {
		if !a.Success {
			continue
		}

		resolved, ok := byVersion[a.Version.String()]
		if !ok {
			continue
		}

		if mismatch := describeMismatch(resolved, a); mismatch != "" {
			return mismatch
		}
	}

	for _, m := range s.catalog {
		if m.Type == migration.TypeSchema || m.Type == migration.TypeInit {
			continue
		}

		if m.Version.GreaterThan(head) {
			continue
		}

		if !hasLedgerRow(s.applied, m.Version) {
			return fmt.Sprintf("missing: resolved migration %s (%s) has not been applied but is at or below head %s",
				m.Version, m.Script, head)
		}
	}

	return ""
}

func hasLedgerRow(applied []migration.AppliedMigration, v version.Version) bool {
	for _, a := range applied {
		if a.Version.Equal(v) {
			return true
		}
	}

	return false
}

// describeMismatch implements checksum > type > description precedence.
func describeMismatch(resolved migration.ResolvedMigration, applied migration.AppliedMigration) string {
	if !checksumsEqual(resolved.Checksum, applied.Checksum) {
		return fmt.Sprintf("checksum mismatch for version %s (%s): resolved=%v applied=%v",
			resolved.Version, resolved.Script, derefChecksum(resolved.Checksum), derefChecksum(applied.Checksum))
	}

	if resolved.Type != applied.Type {
		return fmt.Sprintf("type mismatch for version %s: resolved=%s applied=%s", resolved.Version, resolved.Type, applied.Type)
	}

	if resolved.Description != applied.Description {
		return fmt.Sprintf("description mismatch for version %s: resolved=%q applied=%q",
			resolved.Version, resolved.Description, applied.Description)
	}

	return ""
}

func checksumsEqual(a, b *int32) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

func derefChecksum(c *int32) any {
	if c == nil {
		return nil
	}

	return *c
}
