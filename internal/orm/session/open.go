// Package session opens database handles for a destination dialect and
// executes statements against them.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/conduit-lang/schemabridge/internal/orm/mapper"
)

// Driver names accepted by Open
const (
	DriverPostgres = "postgresql"
	DriverPgx      = "pgx"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Config describes a database to open
type Config struct {
	// Driver is postgresql, pgx, mysql or sqlite. Common aliases
	// (postgres, sqlite3, mariadb) are accepted.
	Driver string
	DSN    string

	// MaxOpenConns limits the pool; zero keeps the driver default.
	// In-memory sqlite databases always use a single connection.
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// NormalizeDriver maps a driver alias to one of the Driver constants
func NormalizeDriver(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgresql", "postgres":
		return DriverPostgres, nil
	case "pgx":
		return DriverPgx, nil
	case "mysql", "mariadb":
		return DriverMySQL, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// DialectOf returns the destination dialect a driver speaks
func DialectOf(driver string) (mapper.Dialect, error) {
	name, err := NormalizeDriver(driver)
	if err != nil {
		return "", err
	}
	return mapper.ParseDialect(name)
}

// Open opens and pings a database
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	driver, err := NormalizeDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch driver {
	case DriverPostgres:
		db, err = openGorm(postgres.Open(cfg.DSN))
	case DriverMySQL:
		db, err = openGorm(mysql.Open(cfg.DSN))
	case DriverPgx:
		db, err = sql.Open("pgx", cfg.DSN)
	case DriverSQLite:
		db, err = sql.Open("sqlite3", cfg.DSN)
		if err == nil && isMemoryDSN(cfg.DSN) {
			db.SetMaxOpenConns(1)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if cfg.MaxOpenConns > 0 && !(driver == DriverSQLite && isMemoryDSN(cfg.DSN)) {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	return db, nil
}

// openGorm lets a gorm dialector configure the connection and hands back
// the underlying pool
func openGorm(dialector gorm.Dialector) (*sql.DB, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}
	return gdb.DB()
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}
