package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowmigrate/flowmigrate/internal/config"
)

const version = "0.1.0"

// AppConfig holds the loaded configuration, set during PersistentPreRunE.
var AppConfig *config.Config //nolint:gochecknoglobals // standard Cobra pattern for shared config

// rootCmd is the base command for the migrate CLI.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "migrate",
	Version: version,
	Short:   "Versioned PostgreSQL schema migration engine",
	Long: `migrate resolves versioned SQL and code migrations, tracks what has
been applied in a metadata table, and applies pending migrations using the
real PostgreSQL parser to split statements and detect non-transactional DDL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.PersistentFlags().String("config", "migrate.yml", "path to configuration file")
	rootCmd.PersistentFlags().String("database-url", "", "database connection string")
	rootCmd.PersistentFlags().String("migrations-dir", "", "single migrations directory (alias for --locations)")
	rootCmd.PersistentFlags().StringSlice("locations", nil, "comma-separated migration search directories")
	rootCmd.PersistentFlags().StringSlice("schemas", nil, "comma-separated managed schemas")
	rootCmd.PersistentFlags().String("table", "", "ledger table name")
	rootCmd.PersistentFlags().String("target", "", "highest version to apply, or \"latest\"")
	rootCmd.PersistentFlags().Bool("out-of-order", false, "allow applying versions below the current head")
	rootCmd.PersistentFlags().String("format", "", "output format (text, json)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration with precedence: flag > env > file.
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	allowMissing := !cmd.Flags().Changed("config")

	cfg, err := config.Load(configPath, allowMissing)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.MergeEnv(cfg)
	mergeFlags(cmd, cfg)

	AppConfig = cfg

	return nil
}

// mergeFlags overrides config with explicitly-set CLI flags, the
// highest-precedence layer above the environment and the config file.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) { //nolint:cyclop // linear flag-by-flag merge
	flags := cmd.Flags()

	if flags.Changed("database-url") {
		cfg.DatabaseURL, _ = flags.GetString("database-url")
	}

	if flags.Changed("migrations-dir") {
		dir, _ := flags.GetString("migrations-dir")
		cfg.MigrationsDir = dir
		cfg.Locations = []string{dir}
	}

	if flags.Changed("locations") {
		cfg.Locations, _ = flags.GetStringSlice("locations")
	}

	if flags.Changed("schemas") {
		cfg.Schemas, _ = flags.GetStringSlice("schemas")
	}

	if flags.Changed("table") {
		cfg.Table, _ = flags.GetString("table")
	}

	if flags.Changed("target") {
		cfg.Target, _ = flags.GetString("target")
	}

	if flags.Changed("out-of-order") {
		cfg.OutOfOrder, _ = flags.GetBool("out-of-order")
	}

	if flags.Changed("format") {
		cfg.Format, _ = flags.GetString("format")
	}

	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetBool("verbose")
	}
}

// placeholderFlagValues parses repeated --placeholder name=value flags into a
// map, merged over any placeholders already set from config/env.
func placeholderFlagValues(raw []string) map[string]string {
	out := make(map[string]string, len(raw))

	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}

		out[name] = value
	}

	return out
}
