package migration

import (
	"sort"

	"github.com/flowmigrate/flowmigrate/internal/version"
)

// Catalog is the ordered sequence of resolved migrations, sorted ascending
// by version. Versions are unique within a catalog; the resolver enforces
// this before returning one.
type Catalog []ResolvedMigration

// Sort returns a new Catalog with its entries sorted ascending by version.
func Sort(migrations []ResolvedMigration) Catalog {
	sorted := make(Catalog, len(migrations))
	copy(sorted, migrations)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Version.LessThan(sorted[j].Version)
	})

	return sorted
}

// MaxVersion returns the highest version in the catalog, or version.Empty if
// the catalog has no entries.
func (c Catalog) MaxVersion() version.Version {
	max := version.Empty
	for _, m := range c {
		if m.Version.GreaterThan(max) {
			max = m.Version
		}
	}

	return max
}

// Find returns the resolved migration at v, if present.
func (c Catalog) Find(v version.Version) (ResolvedMigration, bool) {
	for _, m := range c {
		if m.Version.Equal(v) {
			return m, true
		}
	}

	return ResolvedMigration{}, false
}
