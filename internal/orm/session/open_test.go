package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/schemabridge/internal/orm/mapper"
)

func TestNormalizeDriver(t *testing.T) {
	tests := map[string]string{
		"postgres":   DriverPostgres,
		"PostgreSQL": DriverPostgres,
		"pgx":        DriverPgx,
		"mariadb":    DriverMySQL,
		"sqlite3":    DriverSQLite,
	}
	for input, expected := range tests {
		got, err := NormalizeDriver(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, got, input)
	}

	_, err := NormalizeDriver("oracle")
	assert.Error(t, err)
}

func TestDialectOf(t *testing.T) {
	d, err := DialectOf("pgx")
	require.NoError(t, err)
	assert.Equal(t, mapper.DialectPostgreSQL, d)

	d, err = DialectOf("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, mapper.DialectSQLite, d)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "sqlite"})
	assert.ErrorContains(t, err, "dsn is required")

	_, err = Open(context.Background(), Config{Driver: "db2", DSN: "x"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}

func TestSQLite_CreateAllAndExecute(t *testing.T) {
	ctx := context.Background()

	db, err := Open(ctx, Config{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	executor := NewExecutor(db, mapper.DialectSQLite, nil)
	require.NoError(t, executor.CreateAll(ctx, testMetadata(t)))

	// idempotent thanks to IF NOT EXISTS
	require.NoError(t, executor.CreateAll(ctx, testMetadata(t)))

	rows, err := executor.Query(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'library_%' ORDER BY name")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "library_author", asString(rows[0].Values[0]))
	assert.Equal(t, "library_book", asString(rows[1].Values[0]))

	affected, err := executor.Exec(ctx, "INSERT INTO library_author (name) VALUES (?)", "Ann")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	rows, err = executor.Query(ctx, "SELECT id, name FROM library_author")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	name, _ := rows[0].Get("name")
	assert.Equal(t, "Ann", asString(name))

	_, err = executor.Exec(ctx, "INSERT INTO library_author (nickname) VALUES (?)", "A")
	var execErr *DialectExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, mapper.DialectSQLite, execErr.Dialect)
}
