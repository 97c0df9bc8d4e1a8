package mapper

import (
	"fmt"
	"strings"
)

// Dialect names a destination SQL dialect
type Dialect string

const (
	// DialectDefault is the fallback key every type mapping must provide
	DialectDefault    Dialect = "default"
	DialectPostgreSQL Dialect = "postgresql"
	DialectMySQL      Dialect = "mysql"
	DialectOracle     Dialect = "oracle"
	DialectSQLite     Dialect = "sqlite"
	DialectMSSQL      Dialect = "mssql"
	DialectFirebird   Dialect = "firebird"
)

// Dialects lists every known dialect, default last
var Dialects = []Dialect{
	DialectPostgreSQL,
	DialectMySQL,
	DialectOracle,
	DialectSQLite,
	DialectMSSQL,
	DialectFirebird,
	DialectDefault,
}

// String returns the dialect name
func (d Dialect) String() string {
	return string(d)
}

// ParseDialect converts a dialect or driver name to a Dialect. Common
// driver aliases (postgres, pgx, sqlite3, ...) are accepted.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return DialectDefault, nil
	case "postgresql", "postgres", "pgx", "psycopg2", "postgis":
		return DialectPostgreSQL, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	case "oracle":
		return DialectOracle, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "mssql", "sqlserver":
		return DialectMSSQL, nil
	case "firebird":
		return DialectFirebird, nil
	default:
		return "", fmt.Errorf("unknown dialect: %s", s)
	}
}
