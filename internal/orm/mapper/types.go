package mapper

import (
	"fmt"
	"strings"
)

// ColumnType is a declared column type. Generic types compile differently
// per dialect; dialect-specific types (Named, String with a dialect keyword)
// always compile to the same SQL.
type ColumnType interface {
	// TypeName returns the type's generic name, used in logs and listings
	TypeName() string

	// Compile renders the type for a dialect
	Compile(d Dialect) (string, error)
}

// Integer is a 32-bit integer
type Integer struct {
	Unsigned bool
}

func (t Integer) TypeName() string { return "INTEGER" }

func (t Integer) Compile(d Dialect) (string, error) {
	return integerSQL("INTEGER", t.Unsigned, d), nil
}

// SmallInteger is a 16-bit integer
type SmallInteger struct {
	Unsigned bool
}

func (t SmallInteger) TypeName() string { return "SMALLINT" }

func (t SmallInteger) Compile(d Dialect) (string, error) {
	return integerSQL("SMALLINT", t.Unsigned, d), nil
}

// BigInteger is a 64-bit integer
type BigInteger struct {
	Unsigned bool
}

func (t BigInteger) TypeName() string { return "BIGINT" }

func (t BigInteger) Compile(d Dialect) (string, error) {
	return integerSQL("BIGINT", t.Unsigned, d), nil
}

// integerSQL renders an integer keyword; only MySQL knows UNSIGNED
func integerSQL(keyword string, unsigned bool, d Dialect) string {
	if unsigned && d == DialectMySQL {
		return keyword + " UNSIGNED"
	}
	return keyword
}

// Numeric is a fixed-point number. Keyword is NUMERIC or DECIMAL.
type Numeric struct {
	Keyword   string
	Precision int
	Scale     int
}

func (t Numeric) TypeName() string { return t.keyword() }

func (t Numeric) keyword() string {
	if t.Keyword == "" {
		return "NUMERIC"
	}
	return t.Keyword
}

func (t Numeric) Compile(d Dialect) (string, error) {
	switch {
	case t.Precision > 0:
		return fmt.Sprintf("%s(%d, %d)", t.keyword(), t.Precision, t.Scale), nil
	default:
		return t.keyword(), nil
	}
}

// Number is Oracle's NUMBER(precision[, scale])
type Number struct {
	Precision int
	Scale     int
}

func (t Number) TypeName() string { return "NUMBER" }

func (t Number) Compile(d Dialect) (string, error) {
	switch {
	case t.Precision > 0 && t.Scale > 0:
		return fmt.Sprintf("NUMBER(%d, %d)", t.Precision, t.Scale), nil
	case t.Precision > 0:
		return fmt.Sprintf("NUMBER(%d)", t.Precision), nil
	default:
		return "NUMBER", nil
	}
}

// Float is a floating-point number
type Float struct{}

func (t Float) TypeName() string { return "FLOAT" }

func (t Float) Compile(d Dialect) (string, error) {
	return "FLOAT", nil
}

// String is a character type. Keyword is VARCHAR, CHAR, NVARCHAR2 or
// VARCHAR2; a zero Length renders without a length where the dialect
// allows it.
type String struct {
	Keyword string
	Length  int
}

// Varchar returns a VARCHAR of the given length
func Varchar(length int) String {
	return String{Keyword: "VARCHAR", Length: length}
}

// Char returns a CHAR of the given length
func Char(length int) String {
	return String{Keyword: "CHAR", Length: length}
}

func (t String) TypeName() string { return t.keyword() }

func (t String) keyword() string {
	if t.Keyword == "" {
		return "VARCHAR"
	}
	return t.Keyword
}

func (t String) Compile(d Dialect) (string, error) {
	length := t.Length
	if length == 0 && d == DialectMySQL && t.keyword() == "VARCHAR" {
		// MySQL rejects VARCHAR without a length
		length = 255
	}
	if length > 0 {
		return fmt.Sprintf("%s(%d)", t.keyword(), length), nil
	}
	return t.keyword(), nil
}

// Text is an unbounded character type
type Text struct{}

func (t Text) TypeName() string { return "TEXT" }

func (t Text) Compile(d Dialect) (string, error) {
	if d == DialectOracle {
		return "CLOB", nil
	}
	return "TEXT", nil
}

// LargeBinary is an unbounded binary type
type LargeBinary struct{}

func (t LargeBinary) TypeName() string { return "BLOB" }

func (t LargeBinary) Compile(d Dialect) (string, error) {
	switch d {
	case DialectPostgreSQL:
		return "BYTEA", nil
	case DialectMSSQL:
		return "VARBINARY(max)", nil
	default:
		return "BLOB", nil
	}
}

// Boolean is a true/false type
type Boolean struct{}

func (t Boolean) TypeName() string { return "BOOLEAN" }

func (t Boolean) Compile(d Dialect) (string, error) {
	switch d {
	case DialectMySQL:
		return "BOOL", nil
	case DialectMSSQL:
		return "BIT", nil
	case DialectOracle:
		return "SMALLINT", nil
	default:
		return "BOOLEAN", nil
	}
}

// DateTime is a timestamp without time zone
type DateTime struct{}

func (t DateTime) TypeName() string { return "DATETIME" }

func (t DateTime) Compile(d Dialect) (string, error) {
	switch d {
	case DialectPostgreSQL:
		return "TIMESTAMP WITHOUT TIME ZONE", nil
	case DialectOracle:
		return "DATE", nil
	default:
		return "DATETIME", nil
	}
}

// Date is a calendar date
type Date struct{}

func (t Date) TypeName() string { return "DATE" }

func (t Date) Compile(d Dialect) (string, error) {
	return "DATE", nil
}

// Time is a time of day
type Time struct{}

func (t Time) TypeName() string { return "TIME" }

func (t Time) Compile(d Dialect) (string, error) {
	if d == DialectOracle {
		return "DATE", nil
	}
	return "TIME", nil
}

// JSON is a JSON document
type JSON struct{}

func (t JSON) TypeName() string { return "JSON" }

func (t JSON) Compile(d Dialect) (string, error) {
	switch d {
	case DialectMSSQL:
		return "NVARCHAR(max)", nil
	case DialectOracle:
		return "CLOB", nil
	default:
		return "JSON", nil
	}
}

// Named is a dialect-specific type rendered verbatim (UUID, INET, BYTEA,
// INTERVAL, LONGBLOB, DOUBLE PRECISION, ...)
type Named struct {
	Keyword string
}

func (t Named) TypeName() string { return t.Keyword }

func (t Named) Compile(d Dialect) (string, error) {
	return t.Keyword, nil
}

// Dialect-specific types used by the default type table
var (
	UUID            = Named{Keyword: "UUID"}
	Inet            = Named{Keyword: "INET"}
	Bytea           = Named{Keyword: "BYTEA"}
	Interval        = Named{Keyword: "INTERVAL"}
	LongBlob        = Named{Keyword: "LONGBLOB"}
	DoublePrecision = Named{Keyword: "DOUBLE PRECISION"}
)

// Array is a PostgreSQL array of Item
type Array struct {
	Item ColumnType
}

func (t Array) TypeName() string { return "ARRAY" }

func (t Array) Compile(d Dialect) (string, error) {
	if d != DialectPostgreSQL && d != DialectDefault {
		return "", fmt.Errorf("ARRAY is not supported by %s", d)
	}
	if t.Item == nil {
		return "", fmt.Errorf("ARRAY without an item type")
	}
	item, err := t.Item.Compile(d)
	if err != nil {
		return "", fmt.Errorf("array item: %w", err)
	}
	return item + "[]", nil
}

// Geometry is a spatial type. Geography selects the geodetic variant on
// PostgreSQL/PostGIS.
type Geometry struct {
	GeometryType string
	SRID         int
	Dimension    int
	Geography    bool
}

func (t Geometry) TypeName() string {
	if t.Geography {
		return "GEOGRAPHY"
	}
	return "GEOMETRY"
}

func (t Geometry) geometryType() string {
	if t.GeometryType == "" {
		return "GEOMETRY"
	}
	return strings.ToUpper(t.GeometryType)
}

func (t Geometry) Compile(d Dialect) (string, error) {
	switch d {
	case DialectPostgreSQL, DialectDefault:
		keyword := strings.ToLower(t.TypeName())
		geomType := t.geometryType()
		if t.Dimension == 3 && !strings.HasSuffix(geomType, "Z") {
			geomType += "Z"
		}
		if t.SRID > 0 {
			return fmt.Sprintf("%s(%s,%d)", keyword, geomType, t.SRID), nil
		}
		return fmt.Sprintf("%s(%s)", keyword, geomType), nil
	case DialectMySQL:
		if t.SRID > 0 {
			return fmt.Sprintf("%s SRID %d", t.geometryType(), t.SRID), nil
		}
		return t.geometryType(), nil
	default:
		return "", fmt.Errorf("%s is not supported by %s", t.TypeName(), d)
	}
}
