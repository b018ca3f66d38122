package resolver

import (
	"context"

	"github.com/flowmigrate/flowmigrate/internal/migration"
	"github.com/flowmigrate/flowmigrate/internal/version"
)

// CodeMigration is a programmatic migration the host registers explicitly
// at engine construction time. This replaces the reflection-based classpath
// scanning of the original design: the resolver merges these registrations
// with script-derived candidates rather than discovering them by scanning.
type CodeMigration interface {
	Version() version.Version
	Description() string
	Script() string // fully-qualified name, e.g. "main.AddDefaultAdminUser"
	Apply(ctx context.Context, exec migration.SQLExecutor) error
}

func resolveCode(code []CodeMigration) []migration.ResolvedMigration {
	out := make([]migration.ResolvedMigration, 0, len(code))

	for _, c := range code {
		c := c
		out = append(out, migration.ResolvedMigration{
			Version:     c.Version(),
			Description: c.Description(),
			Type:        migration.TypeCode,
			Script:      c.Script(),
			Checksum:    nil,
			Apply:       migration.ApplierFunc(c.Apply),
		})
	}

	return out
}
