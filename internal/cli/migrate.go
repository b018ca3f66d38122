package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowmigrate/flowmigrate/internal/analyzer"
	"github.com/flowmigrate/flowmigrate/internal/analyzer/rules"
	"github.com/flowmigrate/flowmigrate/internal/config"
	"github.com/flowmigrate/flowmigrate/internal/database"
	"github.com/flowmigrate/flowmigrate/internal/engine"
	"github.com/flowmigrate/flowmigrate/internal/executor"
	"github.com/flowmigrate/flowmigrate/internal/resolver"
)

// errDangerousMigrations is returned when migrate is blocked by high/critical
// analyzer findings and --force was not passed.
var errDangerousMigrations = errors.New("migrate aborted: dangerous migrations detected (use --force to override)")

var migrateCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "migrate",
	Short: "Apply pending migrations",
	Long: `Resolve the configured migration locations, compute the pending set
against the metadata table, and apply each pending migration in order. Runs
the dangerous-DDL analyzer first and aborts on high/critical findings unless
--force or --dry-run is given.`,
	RunE: runMigrate,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	migrateCmd.Flags().Bool("dry-run", false, "show what would be applied without executing")
	migrateCmd.Flags().Bool("force", false, "skip the dangerous-migration safety gate")
	migrateCmd.Flags().Duration("lock-timeout", 0, "override lock timeout (e.g., 10s, 1m)")
	migrateCmd.Flags().Duration("statement-timeout", 0, "override statement timeout (e.g., 30s, 5m)")
	migrateCmd.Flags().StringArray("placeholder", nil, "placeholder value as name=value, may be repeated")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cmd.Flags().Changed("lock-timeout") {
		cfg.LockTimeout, _ = cmd.Flags().GetDuration("lock-timeout")
	}

	if cmd.Flags().Changed("statement-timeout") {
		cfg.StatementTimeout, _ = cmd.Flags().GetDuration("statement-timeout")
	}

	if raw, _ := cmd.Flags().GetStringArray("placeholder"); len(raw) > 0 {
		for name, value := range placeholderFlagValues(raw) {
			cfg.Placeholders[name] = value
		}
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")

	if !force && !dryRun {
		blocked, err := checkDangerousMigrations(cmd, cfg)
		if err != nil {
			return err
		}

		if blocked {
			return errDangerousMigrations
		}
	}

	ctx := cmd.Context()

	out := cmd.OutOrStdout()

	e, pool, err := connectAndBuildEngine(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer pool.Close()

	wouldApply := 0

	result, err := e.Migrate(ctx, engine.Options{
		DryRun: dryRun,
		OnProgress: func(event executor.ProgressEvent) {
			reportProgress(out, event, &wouldApply)
		},
	})
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintf(out, "\nDry run complete: %d migration(s) would be applied.\n", wouldApply)
	} else {
		fmt.Fprintf(out, "\nMigrate complete: %d applied.\n", result.Applied)
	}

	return nil
}

func reportProgress(out io.Writer, event executor.ProgressEvent, wouldApply *int) {
	switch event.Status {
	case executor.StatusStarting:
		fmt.Fprintf(out, "  Applying %s (%s) ... ", event.Migration.Version, event.Migration.Script)
	case executor.StatusCompleted:
		fmt.Fprintf(out, "done (%s)\n", event.Duration.Truncate(time.Millisecond))
	case executor.StatusSkipped:
		fmt.Fprintf(out, "  Would apply %s (%s)\n", event.Migration.Version, event.Migration.Script)
		*wouldApply++
	case executor.StatusFailed:
		fmt.Fprintln(out, "FAILED")
		fmt.Fprintf(out, "    Error: %v\n", event.Error)
	}
}

// checkDangerousMigrations resolves the configured locations and runs the
// dangerous-DDL analyzer over them, mirroring the teacher's
// checkDangerousMigrations/--force guard in its apply command. It needs no
// live connection, the same reasoning analyze.go's runAnalyze relies on.
func checkDangerousMigrations(cmd *cobra.Command, cfg *config.Config) (bool, error) {
	locations := make([]resolver.Location, 0, len(cfg.Locations))
	for _, l := range cfg.Locations {
		locations = append(locations, resolver.DirLocation(l))
	}

	r := resolver.New(locations, nil, resolver.Options{
		SQLMigrationPrefix: cfg.SQLMigrationPrefix,
		SQLMigrationSuffix: cfg.SQLMigrationSuffix,
		Placeholders: resolver.Placeholders{
			Values: cfg.Placeholders,
			Prefix: cfg.PlaceholderPrefix,
			Suffix: cfg.PlaceholderSuffix,
		},
	})

	catalog, _, err := r.Resolve(cmd.Context(), &database.PostgresAdapter{})
	if err != nil {
		return false, fmt.Errorf("resolving migrations for safety check: %w", err)
	}

	a := analyzer.New(
		analyzer.WithRegistry(rules.NewDefaultRegistry()),
		analyzer.WithPGVersion(cfg.TargetPGVersion),
	)

	results, err := a.AnalyzeAll(catalog)
	if err != nil {
		return false, fmt.Errorf("analyzing migrations: %w", err)
	}

	return printAnalysisResults(cmd, results), nil
}
