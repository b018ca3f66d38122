// Package config loads the engine's single immutable configuration value
// from defaults, an optional YAML file, and environment variable overrides,
// mirroring the spec's locations/encoding/schemas/table/target/... surface
// as Go fields rather than the chained getters/setters this replaces.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for configuration fields, matching spec.md §6.
const (
	DefaultLocation           = "./migrations"
	DefaultMigrationsDir      = DefaultLocation // alias kept for the --migrations-dir flag
	DefaultEncoding           = "UTF-8"
	DefaultTable              = "schema_version"
	DefaultTarget             = "latest"
	DefaultPlaceholderPrefix  = "${"
	DefaultPlaceholderSuffix  = "}"
	DefaultSQLMigrationPrefix = "V"
	DefaultSQLMigrationSuffix = ".sql"
	DefaultInitVersion        = "1"
	DefaultInitDescription    = "<< flowmigrate Baseline >>"
	DefaultLockTimeout        = 5 * time.Second
	DefaultStatementTimeout   = 30 * time.Second
	DefaultTargetPGVersion    = 14
	DefaultFormat             = "text"
)

// Config holds the engine's full configuration, built once by Load +
// MergeEnv + flag overrides and then passed by value into the engine. Every
// option named in spec.md §6 has a field here.
type Config struct {
	DatabaseURL string

	Locations []string // script search roots
	Encoding  string   // script charset, recorded but not enforced beyond UTF-8

	Schemas []string // managed schemas; Schemas[0] is default and holds the ledger
	Table   string   // ledger table name, unqualified or schema-qualified

	Target string // cap version or "latest"

	Placeholders       map[string]string
	PlaceholderPrefix  string
	PlaceholderSuffix  string
	SQLMigrationPrefix string
	SQLMigrationSuffix string

	ValidateOnMigrate           bool
	CleanOnValidationError      bool
	InitVersion                 string
	InitDescription             string
	InitOnMigrate               bool
	DisableInitCheck            bool // deprecated; InitOnMigrate is authoritative when both are set
	IgnoreFailedFutureMigration bool
	OutOfOrder                  bool

	LockTimeout      time.Duration
	StatementTimeout time.Duration
	TargetPGVersion  int

	Format  string
	Verbose bool

	// MigrationsDir is a single-directory convenience alias for Locations,
	// kept for the --migrations-dir flag; setting it also replaces Locations.
	MigrationsDir string
}

// yamlConfig is the raw YAML file representation, using the snake_case keys
// of spec.md §6.
type yamlConfig struct {
	DatabaseURL string `yaml:"database_url"`

	Locations []string `yaml:"locations"`
	Encoding  string   `yaml:"encoding"`

	Schemas []string `yaml:"schemas"`
	Table   string   `yaml:"table"`

	Target string `yaml:"target"`

	Placeholders       map[string]string `yaml:"placeholders"`
	PlaceholderPrefix  string            `yaml:"placeholder_prefix"`
	PlaceholderSuffix  string            `yaml:"placeholder_suffix"`
	SQLMigrationPrefix string            `yaml:"sql_migration_prefix"`
	SQLMigrationSuffix string            `yaml:"sql_migration_suffix"`

	ValidateOnMigrate           bool   `yaml:"validate_on_migrate"`
	CleanOnValidationError      bool   `yaml:"clean_on_validation_error"`
	InitVersion                 string `yaml:"init_version"`
	InitDescription             string `yaml:"init_description"`
	InitOnMigrate               bool   `yaml:"init_on_migrate"`
	DisableInitCheck            bool   `yaml:"disable_init_check"`
	IgnoreFailedFutureMigration bool   `yaml:"ignore_failed_future_migration"`
	OutOfOrder                  bool   `yaml:"out_of_order"`

	LockTimeout      string `yaml:"lock_timeout"`
	StatementTimeout string `yaml:"statement_timeout"`
	TargetPGVersion  int    `yaml:"target_pg_version"`

	Format  string `yaml:"format"`
	Verbose bool   `yaml:"verbose"`

	MigrationsDir string `yaml:"migrations_dir"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		Locations:          []string{DefaultLocation},
		MigrationsDir:      DefaultMigrationsDir,
		Encoding:           DefaultEncoding,
		Table:              DefaultTable,
		Target:             DefaultTarget,
		Placeholders:       map[string]string{},
		PlaceholderPrefix:  DefaultPlaceholderPrefix,
		PlaceholderSuffix:  DefaultPlaceholderSuffix,
		SQLMigrationPrefix: DefaultSQLMigrationPrefix,
		SQLMigrationSuffix: DefaultSQLMigrationSuffix,
		InitVersion:        DefaultInitVersion,
		InitDescription:    DefaultInitDescription,
		LockTimeout:        DefaultLockTimeout,
		StatementTimeout:   DefaultStatementTimeout,
		TargetPGVersion:    DefaultTargetPGVersion,
		Format:             DefaultFormat,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw)
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) (*Config, error) { //nolint:cyclop // linear field-by-field merge
	cfg := New()

	if raw.DatabaseURL != "" {
		cfg.DatabaseURL = raw.DatabaseURL
	}

	if len(raw.Locations) > 0 {
		cfg.Locations = raw.Locations
	}

	if raw.MigrationsDir != "" {
		cfg.MigrationsDir = raw.MigrationsDir
		cfg.Locations = []string{raw.MigrationsDir}
	}

	if raw.Encoding != "" {
		cfg.Encoding = raw.Encoding
	}

	if len(raw.Schemas) > 0 {
		cfg.Schemas = raw.Schemas
	}

	if raw.Table != "" {
		cfg.Table = raw.Table
	}

	if raw.Target != "" {
		cfg.Target = raw.Target
	}

	for k, v := range raw.Placeholders {
		cfg.Placeholders[k] = v
	}

	if raw.PlaceholderPrefix != "" {
		cfg.PlaceholderPrefix = raw.PlaceholderPrefix
	}

	if raw.PlaceholderSuffix != "" {
		cfg.PlaceholderSuffix = raw.PlaceholderSuffix
	}

	if raw.SQLMigrationPrefix != "" {
		cfg.SQLMigrationPrefix = raw.SQLMigrationPrefix
	}

	if raw.SQLMigrationSuffix != "" {
		cfg.SQLMigrationSuffix = raw.SQLMigrationSuffix
	}

	cfg.ValidateOnMigrate = raw.ValidateOnMigrate
	cfg.CleanOnValidationError = raw.CleanOnValidationError
	cfg.InitOnMigrate = raw.InitOnMigrate
	cfg.DisableInitCheck = raw.DisableInitCheck
	cfg.IgnoreFailedFutureMigration = raw.IgnoreFailedFutureMigration
	cfg.OutOfOrder = raw.OutOfOrder
	cfg.Verbose = raw.Verbose

	if raw.InitVersion != "" {
		cfg.InitVersion = raw.InitVersion
	}

	if raw.InitDescription != "" {
		cfg.InitDescription = raw.InitDescription
	}

	if raw.LockTimeout != "" {
		d, err := time.ParseDuration(raw.LockTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing lock_timeout %q: %w", raw.LockTimeout, err)
		}

		cfg.LockTimeout = d
	}

	if raw.StatementTimeout != "" {
		d, err := time.ParseDuration(raw.StatementTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing statement_timeout %q: %w", raw.StatementTimeout, err)
		}

		cfg.StatementTimeout = d
	}

	if raw.TargetPGVersion != 0 {
		cfg.TargetPGVersion = raw.TargetPGVersion
	}

	if raw.Format != "" {
		cfg.Format = raw.Format
	}

	return cfg, nil
}

// MergeEnv overrides config fields from MIGRATE_* environment variables, the
// lowest-precedence override above the YAML file and below explicit flags.
func MergeEnv(cfg *Config) { //nolint:cyclop // linear env-by-env merge
	if v := os.Getenv("MIGRATE_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}

	if v := os.Getenv("MIGRATE_MIGRATIONS_DIR"); v != "" {
		cfg.MigrationsDir = v
		cfg.Locations = []string{v}
	}

	if v := os.Getenv("MIGRATE_LOCATIONS"); v != "" {
		cfg.Locations = strings.Split(v, ",")
	}

	if v := os.Getenv("MIGRATE_SCHEMAS"); v != "" {
		cfg.Schemas = strings.Split(v, ",")
	}

	if v := os.Getenv("MIGRATE_TABLE"); v != "" {
		cfg.Table = v
	}

	if v := os.Getenv("MIGRATE_TARGET"); v != "" {
		cfg.Target = v
	}

	if v := os.Getenv("MIGRATE_OUT_OF_ORDER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.OutOfOrder = b
		}
	}

	if v := os.Getenv("MIGRATE_VALIDATE_ON_MIGRATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ValidateOnMigrate = b
		}
	}

	if v := os.Getenv("MIGRATE_INIT_ON_MIGRATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.InitOnMigrate = b
		}
	}

	if v := os.Getenv("MIGRATE_IGNORE_FAILED_FUTURE_MIGRATION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.IgnoreFailedFutureMigration = b
		}
	}

	if v := os.Getenv("MIGRATE_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Verbose = b
		}
	}

	if v := os.Getenv("MIGRATE_FORMAT"); v != "" {
		cfg.Format = v
	}

	if v := os.Getenv("MIGRATE_LOCK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LockTimeout = d
		}
	}

	if v := os.Getenv("MIGRATE_STATEMENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.StatementTimeout = d
		}
	}

	if v := os.Getenv("MIGRATE_TARGET_PG_VERSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TargetPGVersion = n
		}
	}
}
