// Package resolver discovers migration candidates — SQL scripts at
// configured locations and programmatically registered CodeMigrations — and
// turns them into the engine's canonical, deduplicated, version-ordered
// Catalog.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flowmigrate/flowmigrate/internal/migration"
)

// StatementSplitter is the narrow slice of database.Adapter the resolver
// needs: splitting a substituted script into individually executable
// statements. Declaring it locally keeps this package decoupled from the
// rest of the Adapter surface.
type StatementSplitter interface {
	SplitStatements(script string) ([]string, error)
}

// Options configures a Resolver.
type Options struct {
	SQLMigrationPrefix string // default "V"
	SQLMigrationSuffix string // default ".sql"
	Encoding           string // default "UTF-8", recorded but not yet enforced
	Placeholders       Placeholders
	Logger             *slog.Logger
}

// Resolver discovers migration candidates from a set of Locations plus any
// explicitly registered CodeMigrations, and resolves them into a Catalog.
type Resolver struct {
	locations []Location
	code      []CodeMigration
	opts      Options
	logger    *slog.Logger
}

// New constructs a Resolver over locations and code, the host's explicitly
// registered programmatic migrations.
func New(locations []Location, code []CodeMigration, opts Options) *Resolver {
	if opts.SQLMigrationPrefix == "" {
		opts.SQLMigrationPrefix = "V"
	}

	if opts.SQLMigrationSuffix == "" {
		opts.SQLMigrationSuffix = ".sql"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{locations: locations, code: code, opts: opts, logger: logger}
}

// Resolve scans every configured location, parses and checksums every
// candidate SQL script, merges in the registered CodeMigrations, rejects
// duplicate versions, and returns the result sorted ascending by version.
//
// A location that does not exist is reported as a warning rather than
// failing the resolve, so a deployment with an empty or not-yet-created
// migrations directory still succeeds with zero SQL candidates.
func (r *Resolver) Resolve(_ context.Context, adapter StatementSplitter) (migration.Catalog, []string, error) {
	var (
		resolved []migration.ResolvedMigration
		warnings []string
	)

	for _, loc := range r.locations {
		files, err := loc.Files()
		if err != nil {
			if errors.Is(err, ErrLocationMissing) {
				warnings = append(warnings, fmt.Sprintf("migration location %s does not exist, skipping", loc.Describe()))
				continue
			}

			return nil, nil, err
		}

		for _, f := range files {
			m, matched, err := r.resolveFile(f, adapter)
			if err != nil {
				return nil, nil, err
			}

			if !matched {
				continue
			}

			resolved = append(resolved, m)
		}
	}

	resolved = append(resolved, resolveCode(r.code)...)

	if err := checkDuplicates(resolved); err != nil {
		return nil, nil, err
	}

	return migration.Sort(resolved), warnings, nil
}

func (r *Resolver) resolveFile(f ScriptFile, adapter StatementSplitter) (migration.ResolvedMigration, bool, error) {
	parsed, matched, err := parseFilename(f.Name, r.opts.SQLMigrationPrefix, r.opts.SQLMigrationSuffix)
	if err != nil {
		return migration.ResolvedMigration{}, false, err
	}

	if !matched {
		return migration.ResolvedMigration{}, false, nil
	}

	sum := checksum(f.Content)

	applier := &sqlApplier{
		name:         f.Name,
		raw:          string(f.Content),
		placeholders: r.opts.Placeholders,
		splitter:     adapter,
	}

	return migration.ResolvedMigration{
		Version:     parsed.version,
		Description: parsed.description,
		Type:        migration.TypeSQL,
		Script:      f.Name,
		Checksum:    &sum,
		Apply:       applier,
	}, true, nil
}

// sqlApplier is the Applier for a SQL script candidate. It implements
// migration.Renderer as well, so the executor can inspect the
// placeholder-substituted script (e.g. to decide transactional support)
// without executing it.
type sqlApplier struct {
	name         string
	raw          string
	placeholders Placeholders
	splitter     StatementSplitter
}

// Render implements migration.Renderer.
func (s *sqlApplier) Render() (string, error) {
	substituted, err := s.placeholders.Substitute(s.raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", s.name, err)
	}

	return substituted, nil
}

// Apply implements migration.Applier.
func (s *sqlApplier) Apply(ctx context.Context, exec migration.SQLExecutor) error {
	substituted, err := s.Render()
	if err != nil {
		return err
	}

	statements, err := s.splitter.SplitStatements(substituted)
	if err != nil {
		return fmt.Errorf("%s: splitting statements: %w", s.name, err)
	}

	for _, stmt := range statements {
		if _, err := exec.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	return nil
}

func checkDuplicates(resolved []migration.ResolvedMigration) error {
	seen := make(map[string]string, len(resolved))

	for _, m := range resolved {
		key := m.Version.String()
		if existing, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s is resolved by both %s and %s", ErrDuplicateVersion, key, existing, m.Script)
		}

		seen[key] = m.Script
	}

	return nil
}
