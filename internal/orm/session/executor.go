package session

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/schemabridge/internal/orm/mapper"
)

// DialectExecutionError is returned when a mutating statement fails
type DialectExecutionError struct {
	Dialect   mapper.Dialect
	Statement string
	Params    []interface{}
	Err       error
}

func (e *DialectExecutionError) Error() string {
	return fmt.Sprintf("%s: failed to execute %q: %v", e.Dialect, e.Statement, e.Err)
}

func (e *DialectExecutionError) Unwrap() error {
	return e.Err
}

// Conn is satisfied by *sql.DB, *sql.Conn and *sql.Tx
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Row is one result row with columns in select order
type Row struct {
	Columns []string
	Values  []interface{}
}

// Get returns the value of a column
func (r Row) Get(column string) (interface{}, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Map returns the row as a column → value map
func (r Row) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}

// Executor runs statements for a dialect on a connection
type Executor struct {
	conn    Conn
	dialect mapper.Dialect
	logger  *zap.Logger
}

// NewExecutor creates an executor. A nil logger means zap.NewNop.
func NewExecutor(conn Conn, dialect mapper.Dialect, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{conn: conn, dialect: dialect, logger: logger}
}

// Dialect returns the executor's dialect
func (e *Executor) Dialect() mapper.Dialect {
	return e.dialect
}

// Exec runs a mutating statement and returns the number of affected rows
func (e *Executor) Exec(ctx context.Context, stmt string, args ...interface{}) (int64, error) {
	result, err := e.conn.ExecContext(ctx, stmt, args...)
	if err != nil {
		e.logFailure(stmt, args, err)
		return 0, &DialectExecutionError{Dialect: e.dialect, Statement: stmt, Params: args, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		// DDL on some drivers does not report affected rows
		return 0, nil
	}
	return affected, nil
}

// Query runs a read statement. A failing query is logged and yields no rows.
func (e *Executor) Query(ctx context.Context, stmt string, args ...interface{}) ([]Row, error) {
	rows, err := e.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		e.logFailure(stmt, args, err)
		return []Row{}, nil
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		e.logFailure(stmt, args, err)
		return []Row{}, nil
	}

	result := []Row{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			e.logFailure(stmt, args, err)
			return []Row{}, nil
		}
		result = append(result, Row{Columns: columns, Values: values})
	}
	if err := rows.Err(); err != nil {
		e.logFailure(stmt, args, err)
		return []Row{}, nil
	}
	return result, nil
}

// CreateAll creates every table of metadata in dependency order. When the
// executor runs on a *sql.DB the statements share one transaction.
func (e *Executor) CreateAll(ctx context.Context, metadata *mapper.Metadata) error {
	statements, err := metadata.CreateAllSQL(e.dialect)
	if err != nil {
		return err
	}

	run := func(x *Executor) error {
		for _, stmt := range statements {
			if _, err := x.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}

	db, ok := e.conn.(*sql.DB)
	if !ok {
		return run(e)
	}
	return WithSession(ctx, db, func(tx *sql.Tx) error {
		return run(NewExecutor(tx, e.dialect, e.logger))
	})
}

func (e *Executor) logFailure(stmt string, args []interface{}, err error) {
	e.logger.Error("statement failed",
		zap.String("dialect", e.dialect.String()),
		zap.String("sql", stmt),
		zap.Any("params", args),
		zap.Error(err))
}
