package commands

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const libraryManifest = `modules:
  - name: library
    models:
      - name: Author
        table: authors
        fields:
          - {name: id, kind: AutoField, primary_key: true}
          - {name: name, kind: CharField, max_length: 80}
      - name: Book
        table: books
        fields:
          - {name: id, kind: AutoField, primary_key: true}
          - {name: title, kind: CharField, max_length: 200}
          - name: author
            column: author_id
            kind: ForeignKey
            null: true
            relation: {target: Author, related_name: books, on_delete: CASCADE}
          - {name: cover, kind: HexagonField}
`

const brokenManifest = `
  - name: broken
    models:
      - name: Widget
        table: widgets
        fields:
          - {name: id, kind: AutoField, primary_key: true}
          - {name: shape, kind: HexagonField}
`

type fixture struct {
	dir      string
	config   string
	manifest string
	database string
}

func newFixture(t *testing.T, missing string, manifest string) *fixture {
	t.Helper()

	dir := t.TempDir()
	f := &fixture{
		dir:      dir,
		config:   filepath.Join(dir, "schemabridge.yml"),
		manifest: filepath.Join(dir, "models.yml"),
		database: filepath.Join(dir, "library.db"),
	}

	cfg := fmt.Sprintf(`missing: %s
database:
  dialect: sqlite
  dsn: %s
log:
  level: error
`, missing, f.database)
	require.NoError(t, os.WriteFile(f.config, []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(f.manifest, []byte(manifest), 0o644))
	return f
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	color.NoColor = true

	root := NewRootCommand()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestDDLCommand(t *testing.T) {
	f := newFixture(t, "skip", libraryManifest)

	stdout, stderr, err := execute(t, "ddl", f.manifest, "--config", f.config, "--dialect", "postgresql")
	require.NoError(t, err)

	authors := strings.Index(stdout, `CREATE TABLE IF NOT EXISTS "authors"`)
	books := strings.Index(stdout, `CREATE TABLE IF NOT EXISTS "books"`)
	require.GreaterOrEqual(t, authors, 0, stdout)
	require.GreaterOrEqual(t, books, 0, stdout)
	assert.Less(t, authors, books, "referenced tables come first")
	assert.Contains(t, stdout, `"author_id"`)
	assert.NotContains(t, stdout, "cover")

	assert.Contains(t, stderr, "cover")
	assert.Contains(t, stderr, "HexagonField")
}

func TestDDLCommand_ManifestFlag(t *testing.T) {
	f := newFixture(t, "skip", libraryManifest)

	stdout, _, err := execute(t, "ddl", "--manifest", f.manifest, "--config", f.config)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"authors"`)
}

func TestDDLCommand_RaisePolicy(t *testing.T) {
	f := newFixture(t, "raise", libraryManifest)

	stdout, _, err := execute(t, "ddl", f.manifest, "--config", f.config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HexagonField")
	assert.Empty(t, stdout)
}

func TestDDLCommand_NoManifest(t *testing.T) {
	f := newFixture(t, "skip", libraryManifest)

	_, _, err := execute(t, "ddl", "--config", f.config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no manifest given")
}

func TestApplyCommand(t *testing.T) {
	f := newFixture(t, "skip", libraryManifest)

	stdout, _, err := execute(t, "apply", f.manifest, "--config", f.config, "--yes")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Created 2 tables")
	assert.Contains(t, stdout, "2/2")

	db, err := sql.Open("sqlite3", f.database)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('authors', 'books') ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"authors", "books"}, tables)
}

func TestApplyCommand_Declined(t *testing.T) {
	f := newFixture(t, "skip", libraryManifest)

	original := confirm
	defer func() { confirm = original }()

	var asked string
	confirm = func(message string) (bool, error) {
		asked = message
		return false, nil
	}

	stdout, _, err := execute(t, "apply", f.manifest, "--config", f.config)
	require.NoError(t, err)
	assert.Equal(t, "Create 2 tables?", asked)
	assert.Contains(t, stdout, "Aborted")

	_, statErr := os.Stat(f.database)
	assert.True(t, os.IsNotExist(statErr), "database must not be opened")
}

func TestCategorizeDatabaseError(t *testing.T) {
	tests := []struct {
		err  string
		want string
	}{
		{`near "TABEL": syntax error`, "SQL syntax error - use --verbose for details"},
		{`table "books" already exists`, "table already exists - use --verbose for details"},
		{"no such table: authors", "referenced table does not exist - use --verbose for details"},
		{"permission denied for schema public", "permission denied - check database user privileges"},
		{"disk I/O error", "create failed - use --verbose for details"},
	}

	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			assert.Equal(t, tt.want, categorizeDatabaseError(fmt.Errorf("%s", tt.err), false))
			assert.Equal(t, tt.err, categorizeDatabaseError(fmt.Errorf("%s", tt.err), true))
		})
	}
}

func TestInspectCommand(t *testing.T) {
	f := newFixture(t, "skip", libraryManifest)

	stdout, _, err := execute(t, "inspect", f.manifest, "--config", f.config)
	require.NoError(t, err)

	assert.Contains(t, stdout, "MODEL")
	assert.Contains(t, stdout, "library.Author")
	assert.Contains(t, stdout, "library.Book")
	assert.Contains(t, stdout, "books")
}

func TestInspectCommand_Model(t *testing.T) {
	f := newFixture(t, "skip", libraryManifest)

	stdout, _, err := execute(t, "inspect", f.manifest, "--config", f.config, "--model", "Book", "--dialect", "postgresql")
	require.NoError(t, err)

	assert.Contains(t, stdout, "library.Book")
	assert.Contains(t, stdout, "table:   books")
	assert.Contains(t, stdout, "dialect: postgresql")
	assert.Contains(t, stdout, "author_id")
	assert.Contains(t, stdout, "authors.id")
	assert.Contains(t, stdout, "Relationships")
}

func TestInspectCommand_UnknownModel(t *testing.T) {
	f := newFixture(t, "skip", libraryManifest)

	_, stderr, err := execute(t, "inspect", f.manifest, "--config", f.config, "--model", "Bok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model Bok not found")
	assert.Contains(t, stderr, "MODEL NOT FOUND: Bok")
	assert.Contains(t, stderr, "Did you mean: Book?")
}

func TestNamespacesCommand(t *testing.T) {
	f := newFixture(t, "skip", libraryManifest)

	stdout, _, err := execute(t, "namespaces", f.manifest, "--config", f.config)
	require.NoError(t, err)

	assert.Contains(t, stdout, "library.alchemy")
	assert.Contains(t, stdout, "2 tables")
	assert.Contains(t, stdout, "authors")
	assert.Contains(t, stdout, "Published 1 namespaces")
}

func TestNamespacesCommand_ContainsFailures(t *testing.T) {
	clean := strings.Replace(libraryManifest, "          - {name: cover, kind: HexagonField}\n", "", 1)
	f := newFixture(t, "raise", clean+brokenManifest)

	stdout, stderr, err := execute(t, "namespaces", f.manifest, "--config", f.config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 modules failed: broken")
	assert.Contains(t, stderr, "BROKEN")
	assert.Contains(t, stderr, "HexagonField")
	assert.Contains(t, stdout, "library.alchemy")
	assert.NotContains(t, stdout, "broken.alchemy")
}
