package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/schemabridge/internal/orm/declare"
	"github.com/conduit-lang/schemabridge/internal/orm/mapper"
	"github.com/conduit-lang/schemabridge/internal/orm/session"
	"github.com/conduit-lang/schemabridge/internal/orm/source"
	"github.com/conduit-lang/schemabridge/internal/orm/transfer"
	"github.com/conduit-lang/schemabridge/internal/orm/typemap"
)

// EnvPrefix prefixes every environment override (SCHEMABRIDGE_DATABASE_DSN, ...)
const EnvPrefix = "SCHEMABRIDGE"

var configNames = []string{"schemabridge.yml", "schemabridge.yaml"}

// Config represents the schemabridge configuration
type Config struct {
	// Dialect is the destination dialect; empty detects it from the database
	Dialect       string  `mapstructure:"dialect"`
	BackReference string  `mapstructure:"back_reference"`
	Missing       string  `mapstructure:"missing"`
	Aliases       []Alias `mapstructure:"aliases"`

	// Manifest is the default model manifest path
	Manifest string `mapstructure:"manifest"`

	Autoload AutoloadConfig `mapstructure:"autoload"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

// Alias maps a custom field kind to an existing one
type Alias struct {
	Kind string `mapstructure:"kind"`
	As   string `mapstructure:"as"`
}

// AutoloadConfig configures namespace autoloading
type AutoloadConfig struct {
	ModuleName   string          `mapstructure:"module_name"`
	StartupDelay time.Duration   `mapstructure:"startup_delay"`
	Options      AutoloadOptions `mapstructure:"options"`
}

// AutoloadOptions are the transfer options used by the autoloader
type AutoloadOptions struct {
	Dialect       string `mapstructure:"dialect"`
	BackReference string `mapstructure:"back_reference"`
	NameFormat    string `mapstructure:"name_format"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Dialect string `mapstructure:"dialect"`
	DSN     string `mapstructure:"dsn"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load loads the configuration from path, or from the nearest
// schemabridge.yml when path is empty. A .env file next to the
// configuration is loaded into the environment first.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("dialect", "")
	v.SetDefault("back_reference", "none")
	v.SetDefault("missing", "")
	v.SetDefault("manifest", "")
	v.SetDefault("autoload.module_name", transfer.DefaultModuleName)
	v.SetDefault("autoload.startup_delay", "0s")
	v.SetDefault("autoload.options.dialect", "")
	v.SetDefault("autoload.options.back_reference", "")
	v.SetDefault("autoload.options.name_format", "camel")
	v.SetDefault("database.dialect", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	if path == "" {
		if found, err := FindConfigFile(); err == nil {
			path = found
		}
	}

	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func loadDotEnv(configPath string) error {
	dir := "."
	if configPath != "" {
		dir = filepath.Dir(configPath)
	}
	envFile := filepath.Join(dir, ".env")
	if _, err := os.Stat(envFile); err != nil {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	return nil
}

// FindConfigFile looks for schemabridge.yml in the working directory and
// its parents
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, name := range configNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		// Move up one directory
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no schemabridge.yml found")
		}
		dir = parent
	}
}

// DatabaseDSN returns the configured DSN, falling back to DATABASE_URL
func (c *Config) DatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return os.Getenv("DATABASE_URL")
}

// Policy returns the missing-mapping policy
func (c *Config) Policy() (declare.Policy, error) {
	return declare.ParsePolicy(c.Missing)
}

// BackRef returns the back-reference style
func (c *Config) BackRef() (declare.BackRefKind, error) {
	return declare.ParseBackRefKind(c.BackReference)
}

// TargetDialect returns the destination dialect. An unset dialect is taken
// from the database driver, then the default mapping.
func (c *Config) TargetDialect() (mapper.Dialect, error) {
	if c.Dialect != "" {
		return mapper.ParseDialect(c.Dialect)
	}
	if c.Database.Dialect != "" {
		return session.DialectOf(c.Database.Dialect)
	}
	return mapper.DialectDefault, nil
}

// ApplyAliases registers the configured aliases
func (c *Config) ApplyAliases(registry *typemap.Registry) error {
	if len(c.Aliases) == 0 {
		return nil
	}
	aliases := make([]typemap.AliasPair, 0, len(c.Aliases))
	for _, a := range c.Aliases {
		aliases = append(aliases, typemap.AliasPair{Kind: source.Kind(a.Kind), As: source.Kind(a.As)})
	}
	return registry.AliasAll(aliases)
}

// TransferOptions returns the autoloader configuration. Unset autoload
// options inherit the top-level dialect and back reference.
func (c *Config) TransferOptions() (transfer.AutoloadConfig, error) {
	opts := c.Autoload.Options

	dialect, err := c.TargetDialect()
	if err != nil {
		return transfer.AutoloadConfig{}, err
	}
	if opts.Dialect != "" {
		if dialect, err = mapper.ParseDialect(opts.Dialect); err != nil {
			return transfer.AutoloadConfig{}, err
		}
	}

	backRef, err := c.BackRef()
	if err != nil {
		return transfer.AutoloadConfig{}, err
	}
	if opts.BackReference != "" {
		if backRef, err = declare.ParseBackRefKind(opts.BackReference); err != nil {
			return transfer.AutoloadConfig{}, err
		}
	}

	format, err := transfer.ParseNameFormatter(opts.NameFormat)
	if err != nil {
		return transfer.AutoloadConfig{}, err
	}

	return transfer.AutoloadConfig{
		ModuleName:   c.Autoload.ModuleName,
		StartupDelay: c.Autoload.StartupDelay,
		Options: transfer.Options{
			Dialect:       dialect,
			BackRef:       backRef,
			NameFormatter: format,
		},
	}, nil
}

// Logger builds the zap logger described by the log section
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log.level: %w", err)
	}

	var zc zap.Config
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	var errs error

	if strings.TrimSpace(cfg.Missing) == "" {
		errs = multierr.Append(errs, fmt.Errorf("missing is required (warn, skip, raise or fallback:<Kind>)"))
	} else if _, err := cfg.Policy(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("missing: %w", err))
	}

	if _, err := cfg.BackRef(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("back_reference: %w", err))
	}
	if cfg.Dialect != "" {
		if _, err := mapper.ParseDialect(cfg.Dialect); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("dialect: %w", err))
		}
	}
	if cfg.Database.Dialect != "" {
		if _, err := session.NormalizeDriver(cfg.Database.Dialect); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("database.dialect: %w", err))
		}
	}
	for i, a := range cfg.Aliases {
		if a.Kind == "" || a.As == "" {
			errs = multierr.Append(errs, fmt.Errorf("aliases[%d]: kind and as are required", i))
		}
	}
	if cfg.Autoload.StartupDelay < 0 {
		errs = multierr.Append(errs, fmt.Errorf("autoload.startup_delay must not be negative, got: %s", cfg.Autoload.StartupDelay))
	}
	if _, err := transfer.ParseNameFormatter(cfg.Autoload.Options.NameFormat); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("autoload.options.name_format: %w", err))
	}
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errs
}

func parseLevel(s string) (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, err
	}
	return level, nil
}
