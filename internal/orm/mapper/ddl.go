package mapper

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// QuoteIdentifier quotes a table or column name for a dialect
func QuoteIdentifier(d Dialect, identifier string) string {
	switch d {
	case DialectPostgreSQL:
		return pq.QuoteIdentifier(identifier)
	case DialectMySQL:
		return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
	case DialectMSSQL:
		return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
	}
}

// CreateTableSQL renders a CREATE TABLE statement for a table
func CreateTableSQL(t *Table, d Dialect) (string, error) {
	return createTableSQL(t, d, nil)
}

// createTableSQL renders a table, leaving out the foreign key constraints
// of the columns in skip
func createTableSQL(t *Table, d Dialect, skip map[*Column]bool) (string, error) {
	if t == nil {
		return "", fmt.Errorf("table cannot be nil")
	}
	columns := t.Columns()
	if len(columns) == 0 {
		return "", fmt.Errorf("table %s has no columns", t.Name)
	}

	var b strings.Builder
	switch d {
	case DialectOracle, DialectMSSQL, DialectFirebird:
		b.WriteString(fmt.Sprintf("CREATE TABLE %s (\n", QuoteIdentifier(d, t.Name)))
	default:
		b.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n", QuoteIdentifier(d, t.Name)))
	}

	pk := t.PrimaryKey()
	inlinePK := false
	defs := make([]string, 0, len(columns)+2)
	for _, c := range columns {
		def, inline, err := columnDefinition(c, d, len(pk) == 1)
		if err != nil {
			return "", fmt.Errorf("table %s column %s: %w", t.Name, c.Name, err)
		}
		inlinePK = inlinePK || inline
		defs = append(defs, def)
	}

	if len(pk) > 0 && !inlinePK {
		names := make([]string, len(pk))
		for i, c := range pk {
			names[i] = QuoteIdentifier(d, c.Name)
		}
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(names, ", ")))
	}

	for _, c := range t.ForeignKeyColumns() {
		if skip[c] {
			continue
		}
		defs = append(defs, foreignKeyClause(c, d))
	}

	for i, def := range defs {
		b.WriteString("  ")
		b.WriteString(def)
		if i < len(defs)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");")

	return b.String(), nil
}

func foreignKeyClause(c *Column, d Dialect) string {
	fk := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
		QuoteIdentifier(d, c.Name),
		QuoteIdentifier(d, c.ForeignKey.TargetTable()),
		QuoteIdentifier(d, c.ForeignKey.TargetColumn()))
	if c.ForeignKey.OnDelete != "" {
		fk += " ON DELETE " + c.ForeignKey.OnDelete
	}
	return fk
}

// AddForeignKeySQL renders an ALTER TABLE statement adding the foreign key
// constraint of a column. The constraint is named fk_<table>_<column>.
func AddForeignKeySQL(c *Column, d Dialect) (string, error) {
	if c == nil || c.ForeignKey == nil || c.Table == nil {
		return "", fmt.Errorf("column has no foreign key")
	}
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s;",
		QuoteIdentifier(d, c.Table.Name),
		QuoteIdentifier(d, "fk_"+c.Table.Name+"_"+c.Name),
		foreignKeyClause(c, d)), nil
}

// columnDefinition renders one column. The second return value reports
// whether the primary key was declared inline.
func columnDefinition(c *Column, d Dialect, singlePK bool) (string, bool, error) {
	if c.Type == nil {
		return "", false, fmt.Errorf("column has no type")
	}
	typeSQL, err := c.Type.Compile(d)
	if err != nil {
		return "", false, err
	}

	parts := []string{QuoteIdentifier(d, c.Name)}
	inlinePK := false

	if c.AutoIncrement && c.PrimaryKey {
		switch d {
		case DialectPostgreSQL:
			switch c.Type.(type) {
			case SmallInteger:
				typeSQL = "SMALLSERIAL"
			case Integer:
				typeSQL = "SERIAL"
			case BigInteger:
				typeSQL = "BIGSERIAL"
			}
			parts = append(parts, typeSQL)
		case DialectMySQL:
			parts = append(parts, typeSQL, "AUTO_INCREMENT")
		case DialectSQLite:
			if singlePK {
				parts = append(parts, "INTEGER", "PRIMARY KEY", "AUTOINCREMENT")
				inlinePK = true
			} else {
				parts = append(parts, typeSQL)
			}
		case DialectMSSQL:
			parts = append(parts, typeSQL, "IDENTITY(1,1)")
		case DialectOracle:
			parts = append(parts, typeSQL, "GENERATED BY DEFAULT AS IDENTITY")
		default:
			parts = append(parts, typeSQL)
		}
	} else {
		parts = append(parts, typeSQL)
	}

	if c.Nullable && !c.PrimaryKey {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}

	if c.Default != nil {
		value, err := FormatDefault(c.Default, d)
		if err != nil {
			return "", false, fmt.Errorf("default value: %w", err)
		}
		parts = append(parts, "DEFAULT "+value)
	}

	if c.Unique && !c.PrimaryKey {
		parts = append(parts, "UNIQUE")
	}

	return strings.Join(parts, " "), inlinePK, nil
}

// FormatDefault renders a default value as a SQL literal
func FormatDefault(v *DefaultValue, d Dialect) (string, error) {
	if v.Expression != "" {
		return v.Expression, nil
	}

	switch value := v.Value.(type) {
	case nil:
		return "NULL", nil
	case string:
		return quoteLiteral(value), nil
	case bool:
		switch d {
		case DialectMSSQL, DialectOracle, DialectSQLite:
			if value {
				return "1", nil
			}
			return "0", nil
		}
		if value {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.FormatInt(int64(value), 10), nil
	case int8:
		return strconv.FormatInt(int64(value), 10), nil
	case int16:
		return strconv.FormatInt(int64(value), 10), nil
	case int32:
		return strconv.FormatInt(int64(value), 10), nil
	case int64:
		return strconv.FormatInt(value, 10), nil
	case uint:
		return strconv.FormatUint(uint64(value), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(value), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(value), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(value), 10), nil
	case uint64:
		return strconv.FormatUint(value, 10), nil
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), nil
	case uuid.UUID:
		return quoteLiteral(value.String()), nil
	case time.Time:
		return quoteLiteral(value.Format("2006-01-02 15:04:05")), nil
	case time.Duration:
		if d == DialectPostgreSQL {
			return quoteLiteral(fmt.Sprintf("%d microseconds", value.Microseconds())), nil
		}
		return strconv.FormatInt(value.Microseconds(), 10), nil
	case fmt.Stringer:
		return quoteLiteral(value.String()), nil
	default:
		return "", fmt.Errorf("unsupported default value type %T", v.Value)
	}
}

// quoteLiteral wraps a string in single quotes, doubling inner quotes
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// CreateAllSQL renders CREATE TABLE statements for every declared table in
// dependency order. Foreign keys that close a cycle are added afterwards
// with ALTER TABLE, except on sqlite, which cannot add constraints to an
// existing table and accepts references to tables not yet created.
func (m *Metadata) CreateAllSQL(d Dialect) ([]string, error) {
	tables, deferred := m.SortedTables()
	if d == DialectSQLite {
		deferred = nil
	}

	skip := make(map[*Column]bool, len(deferred))
	for _, c := range deferred {
		skip[c] = true
	}

	statements := make([]string, 0, len(tables)+len(deferred))
	for _, t := range tables {
		stmt, err := createTableSQL(t, d, skip)
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	for _, c := range deferred {
		stmt, err := AddForeignKeySQL(c, d)
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}
