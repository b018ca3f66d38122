package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowmigrate/flowmigrate/internal/analyzer"
	"github.com/flowmigrate/flowmigrate/internal/analyzer/rules"
	"github.com/flowmigrate/flowmigrate/internal/database"
	"github.com/flowmigrate/flowmigrate/internal/resolver"
)

var analyzeCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "analyze [migration-dir]",
	Short: "Analyze migrations for dangerous operations",
	Long: `Analyze SQL migration files for dangerous DDL operations that could
cause table locks, downtime, or data loss. Reports findings with severity
levels and suggests safe alternatives.`,
	RunE: runAnalyze,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	analyzeCmd.Flags().String("format", "text", "output format (text, json, github-actions)")
	analyzeCmd.Flags().Bool("fail-on-high", false, "exit with non-zero code if high/critical findings exist")
	rootCmd.AddCommand(analyzeCmd)
}

// errHighSeverityFindings is returned when --fail-on-high is set and high/critical findings exist.
var errHighSeverityFindings = errors.New("high or critical severity findings detected")

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := AppConfig

	dir := cfg.MigrationsDir
	if len(args) > 0 {
		dir = args[0]
	}

	// analyze is a static check over the resolved catalog: it needs the
	// adapter only to split scripts into statements, never a live
	// connection, so a bare PostgresAdapter stands in for the one the
	// engine would otherwise build from the metadata connection.
	r := resolver.New([]resolver.Location{resolver.DirLocation(dir)}, nil, resolver.Options{
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
		return fmt.Errorf("loading migrations: %w", err)
	}

	if len(catalog) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No migration files found.")
		return nil
	}

	a := analyzer.New(
		analyzer.WithRegistry(rules.NewDefaultRegistry()),
		analyzer.WithPGVersion(cfg.TargetPGVersion),
	)

	results, err := a.AnalyzeAll(catalog)
	if err != nil {
		return fmt.Errorf("analyzing migrations: %w", err)
	}

	hasHighOrCritical := printAnalysisResults(cmd, results)

	failOnHigh, _ := cmd.Flags().GetBool("fail-on-high")
	if failOnHigh && hasHighOrCritical {
		return errHighSeverityFindings
	}

	return nil
}

func printAnalysisResults(cmd *cobra.Command, results []analyzer.AnalysisResult) bool {
	out := cmd.OutOrStdout()
	totalFindings := 0
	hasHighOrCritical := false

	for _, r := range results {
		if len(r.Findings) == 0 {
			continue
		}

		fmt.Fprintf(out, "\n=== %s (%s) ===\n", r.Migration.Version, r.Migration.Script)

		for _, f := range r.Findings {
			fmt.Fprintf(out, "  [%s] %s\n", f.Severity, f.Message)
			fmt.Fprintf(out, "    Table: %s\n", f.Table)
			fmt.Fprintf(out, "    Rule:  %s\n", f.Rule)

			if f.Statement != "" {
				fmt.Fprintf(out, "    SQL:   %s\n", f.Statement)
			}

			fmt.Fprintf(out, "    Fix:   %s\n\n", f.Suggestion)
		}

		totalFindings += len(r.Findings)

		if r.HasHighOrCritical() {
			hasHighOrCritical = true
		}
	}

	if totalFindings == 0 {
		fmt.Fprintln(out, "No dangerous operations detected.")
	} else {
		fmt.Fprintf(out, "Found %d finding(s) across %d migration(s).\n", totalFindings, countMigrationsWithFindings(results))
	}

	return hasHighOrCritical
}

func countMigrationsWithFindings(results []analyzer.AnalysisResult) int {
	count := 0

	for _, r := range results {
		if len(r.Findings) > 0 {
			count++
		}
	}

	return count
}
