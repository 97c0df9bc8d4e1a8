package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnType_Compile(t *testing.T) {
	tests := []struct {
		name     string
		typ      ColumnType
		dialect  Dialect
		expected string
	}{
		{"unsigned smallint on mysql", SmallInteger{Unsigned: true}, DialectMySQL, "SMALLINT UNSIGNED"},
		{"unsigned smallint on postgres", SmallInteger{Unsigned: true}, DialectPostgreSQL, "SMALLINT"},
		{"integer", Integer{}, DialectDefault, "INTEGER"},
		{"unsigned bigint", BigInteger{Unsigned: true}, DialectMySQL, "BIGINT UNSIGNED"},
		{"numeric with precision", Numeric{Precision: 10, Scale: 2}, DialectPostgreSQL, "NUMERIC(10, 2)"},
		{"decimal keyword", Numeric{Keyword: "DECIMAL", Precision: 5}, DialectDefault, "DECIMAL(5, 0)"},
		{"bare numeric", Numeric{}, DialectDefault, "NUMERIC"},
		{"number with scale", Number{Precision: 10, Scale: 2}, DialectOracle, "NUMBER(10, 2)"},
		{"number precision only", Number{Precision: 11}, DialectOracle, "NUMBER(11)"},
		{"varchar", Varchar(30), DialectMySQL, "VARCHAR(30)"},
		{"varchar without length on mysql", String{}, DialectMySQL, "VARCHAR(255)"},
		{"varchar without length on postgres", String{}, DialectPostgreSQL, "VARCHAR"},
		{"char", Char(32), DialectDefault, "CHAR(32)"},
		{"nvarchar2", String{Keyword: "NVARCHAR2", Length: 100}, DialectOracle, "NVARCHAR2(100)"},
		{"text on oracle", Text{}, DialectOracle, "CLOB"},
		{"blob on postgres", LargeBinary{}, DialectPostgreSQL, "BYTEA"},
		{"blob on mssql", LargeBinary{}, DialectMSSQL, "VARBINARY(max)"},
		{"boolean on mysql", Boolean{}, DialectMySQL, "BOOL"},
		{"boolean on mssql", Boolean{}, DialectMSSQL, "BIT"},
		{"datetime on postgres", DateTime{}, DialectPostgreSQL, "TIMESTAMP WITHOUT TIME ZONE"},
		{"datetime on sqlite", DateTime{}, DialectSQLite, "DATETIME"},
		{"time on oracle", Time{}, DialectOracle, "DATE"},
		{"json on mssql", JSON{}, DialectMSSQL, "NVARCHAR(max)"},
		{"uuid", UUID, DialectPostgreSQL, "UUID"},
		{"double precision", DoublePrecision, DialectOracle, "DOUBLE PRECISION"},
		{"array of integer", Array{Item: Integer{}}, DialectPostgreSQL, "INTEGER[]"},
		{"point with srid", Geometry{GeometryType: "point", SRID: 4326}, DialectPostgreSQL, "geometry(POINT,4326)"},
		{"geography", Geometry{GeometryType: "POLYGON", Geography: true}, DialectPostgreSQL, "geography(POLYGON)"},
		{"3d linestring", Geometry{GeometryType: "LINESTRING", Dimension: 3, SRID: 4326}, DialectDefault, "geometry(LINESTRINGZ,4326)"},
		{"point on mysql", Geometry{GeometryType: "POINT", SRID: 4326}, DialectMySQL, "POINT SRID 4326"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.typ.Compile(tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestColumnType_CompileUnsupported(t *testing.T) {
	_, err := Array{Item: Integer{}}.Compile(DialectMySQL)
	assert.Error(t, err)

	_, err = Array{}.Compile(DialectPostgreSQL)
	assert.Error(t, err)

	_, err = Geometry{GeometryType: "POINT"}.Compile(DialectOracle)
	assert.Error(t, err)
}

func TestParseDialect(t *testing.T) {
	tests := map[string]Dialect{
		"":           DialectDefault,
		"postgres":   DialectPostgreSQL,
		"PostgreSQL": DialectPostgreSQL,
		"pgx":        DialectPostgreSQL,
		"mariadb":    DialectMySQL,
		"sqlite3":    DialectSQLite,
		"sqlserver":  DialectMSSQL,
		"oracle":     DialectOracle,
	}
	for input, expected := range tests {
		got, err := ParseDialect(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, got, input)
	}

	_, err := ParseDialect("db2")
	assert.Error(t, err)
}
