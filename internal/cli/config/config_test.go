package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/conduit-lang/schemabridge/internal/orm/declare"
	"github.com/conduit-lang/schemabridge/internal/orm/mapper"
	"github.com/conduit-lang/schemabridge/internal/orm/source"
	"github.com/conduit-lang/schemabridge/internal/orm/typemap"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(oldWd) })
}

func TestLoadRequiresMissingPolicy(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error without a missing policy")
	}
	if !strings.Contains(err.Error(), "missing is required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SCHEMABRIDGE_MISSING", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg.BackReference != "none" {
		t.Errorf("expected default back_reference 'none', got %s", cfg.BackReference)
	}
	if cfg.Autoload.ModuleName != "alchemy" {
		t.Errorf("expected default module name 'alchemy', got %s", cfg.Autoload.ModuleName)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Log.Level)
	}

	policy, err := cfg.Policy()
	if err != nil || policy != declare.Warn {
		t.Errorf("expected warn policy, got %v (%v)", policy, err)
	}

	dialect, err := cfg.TargetDialect()
	if err != nil || dialect != mapper.DialectDefault {
		t.Errorf("expected default dialect, got %s (%v)", dialect, err)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	configContent := `
dialect: mysql
back_reference: back_populates
missing: fallback:TextField
aliases:
  - kind: HexagonField
    as: CharField
autoload:
  module_name: tables
  startup_delay: 2s
  options:
    dialect: postgresql
    name_format: snake
database:
  dialect: sqlite3
  dsn: file:test.db
log:
  level: debug
  development: true
`
	os.WriteFile("schemabridge.yml", []byte(configContent), 0644)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.Dialect != "mysql" {
		t.Errorf("expected dialect 'mysql', got %s", cfg.Dialect)
	}
	if cfg.Autoload.StartupDelay != 2*time.Second {
		t.Errorf("expected startup delay 2s, got %s", cfg.Autoload.StartupDelay)
	}
	if cfg.DatabaseDSN() != "file:test.db" {
		t.Errorf("expected dsn from config, got %s", cfg.DatabaseDSN())
	}

	policy, err := cfg.Policy()
	if err != nil || policy != declare.FallbackTo(source.KindTextField) {
		t.Errorf("expected fallback policy, got %v (%v)", policy, err)
	}

	opts, err := cfg.TransferOptions()
	if err != nil {
		t.Fatalf("transfer options: %v", err)
	}
	if opts.ModuleName != "tables" {
		t.Errorf("expected module name 'tables', got %s", opts.ModuleName)
	}
	if opts.Options.Dialect != mapper.DialectPostgreSQL {
		t.Errorf("expected autoload dialect postgresql, got %s", opts.Options.Dialect)
	}
	if opts.Options.BackRef != declare.BackRefBackPopulates {
		t.Errorf("expected inherited back_populates, got %s", opts.Options.BackRef)
	}
	if got := opts.Options.NameFormatter("BookAuthor"); got != "book_author" {
		t.Errorf("expected snake name format, got %s", got)
	}

	registry := typemap.NewDefaultRegistry()
	if err := cfg.ApplyAliases(registry); err != nil {
		t.Fatalf("apply aliases: %v", err)
	}
	if _, ok := registry.Lookup(source.Kind("HexagonField")); !ok {
		t.Error("expected HexagonField to be aliased")
	}

	logger, err := cfg.Logger()
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	logger.Sync()
}

func TestLoadExplicitPathAndDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, t.TempDir())

	path := filepath.Join(tmpDir, "custom.yml")
	os.WriteFile(path, []byte("dialect: oracle\n"), 0644)
	os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("SCHEMABRIDGE_MISSING=raise\n"), 0644)
	t.Cleanup(func() { os.Unsetenv("SCHEMABRIDGE_MISSING") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Missing != "raise" {
		t.Errorf("expected missing from .env, got %q", cfg.Missing)
	}
	if cfg.Dialect != "oracle" {
		t.Errorf("expected dialect 'oracle', got %s", cfg.Dialect)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	os.WriteFile("schemabridge.yml", []byte("missing: warn\ndatabase:\n  dsn: file:one.db\n"), 0644)

	t.Setenv("SCHEMABRIDGE_MISSING", "skip")
	t.Setenv("SCHEMABRIDGE_DATABASE_DSN", "file:two.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Missing != "skip" {
		t.Errorf("expected env override 'skip', got %s", cfg.Missing)
	}
	if cfg.Database.DSN != "file:two.db" {
		t.Errorf("expected env override dsn, got %s", cfg.Database.DSN)
	}
}

func TestDatabaseDSNFallsBackToDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgresql://env/testdb")

	cfg := &Config{}
	if got := cfg.DatabaseDSN(); got != "postgresql://env/testdb" {
		t.Errorf("expected DATABASE_URL from environment, got %s", got)
	}
}

func TestApplyAliasesChained(t *testing.T) {
	cfg := &Config{Aliases: []Alias{
		{Kind: "AChild", As: "BParent"},
		{Kind: "BParent", As: "CharField"},
	}}

	registry := typemap.NewDefaultRegistry()
	if err := cfg.ApplyAliases(registry); err != nil {
		t.Fatalf("expected chained aliases to apply, got %v", err)
	}
	for _, kind := range []source.Kind{"AChild", "BParent"} {
		if _, ok := registry.Lookup(kind); !ok {
			t.Errorf("expected %s to be aliased", kind)
		}
	}

	cfg.Aliases = append(cfg.Aliases, Alias{Kind: "Orphan", As: "NoSuchField"})
	err := cfg.ApplyAliases(typemap.NewDefaultRegistry())
	if err == nil || !strings.Contains(err.Error(), "cannot alias Orphan") {
		t.Errorf("expected the unresolved alias to be reported, got %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Missing:       "warn",
			BackReference: "none",
			Autoload:      AutoloadConfig{Options: AutoloadOptions{NameFormat: "camel"}},
			Log:           LogConfig{Level: "info"},
		}
	}

	if err := validateConfig(valid()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad policy", func(c *Config) { c.Missing = "ignore" }, "missing:"},
		{"bad back reference", func(c *Config) { c.BackReference = "sideways" }, "back_reference"},
		{"bad dialect", func(c *Config) { c.Dialect = "db2" }, "dialect"},
		{"bad driver", func(c *Config) { c.Database.Dialect = "db2" }, "database.dialect"},
		{"incomplete alias", func(c *Config) { c.Aliases = []Alias{{Kind: "X"}} }, "aliases[0]"},
		{"negative delay", func(c *Config) { c.Autoload.StartupDelay = -time.Second }, "startup_delay"},
		{"bad name format", func(c *Config) { c.Autoload.Options.NameFormat = "kebab" }, "name_format"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "schemabridge.yaml"), []byte(""), 0644)

	subDir := filepath.Join(tmpDir, "src", "deep", "nested")
	os.MkdirAll(subDir, 0755)
	chdir(t, subDir)

	found, err := FindConfigFile()
	if err != nil {
		t.Fatalf("expected to find config file, got error: %v", err)
	}

	// On macOS, /tmp is symlinked to /private/tmp, so resolve both paths
	resolvedFound, _ := filepath.EvalSymlinks(found)
	resolvedExpected, _ := filepath.EvalSymlinks(filepath.Join(tmpDir, "schemabridge.yaml"))

	if resolvedFound != resolvedExpected {
		t.Errorf("expected config file %s, got %s", resolvedExpected, resolvedFound)
	}
}
