package inspect

import (
	"database/sql"
	"encoding/json"
	"net"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/conduit-lang/schemabridge/internal/orm/source"
)

// wellKnown maps Go types whose GORM data type is ambiguous to field kinds
var wellKnown = map[reflect.Type]source.Kind{
	reflect.TypeOf(uuid.UUID{}):       source.KindUUIDField,
	reflect.TypeOf(time.Duration(0)):  source.KindDurationField,
	reflect.TypeOf(net.IP{}):          source.KindGenericIPAddressField,
	reflect.TypeOf(json.RawMessage{}): source.KindJSONField,
	reflect.TypeOf(gorm.DeletedAt{}):  source.KindDateTimeField,
	reflect.TypeOf(sql.NullTime{}):    source.KindDateTimeField,
	reflect.TypeOf(sql.NullBool{}):    source.KindNullBooleanField,
}

// arrayBases maps pq array types to the kind of their elements
var arrayBases = map[reflect.Type]source.Kind{
	reflect.TypeOf(pq.StringArray{}):  source.KindCharField,
	reflect.TypeOf(pq.Int64Array{}):   source.KindBigIntegerField,
	reflect.TypeOf(pq.Int32Array{}):   source.KindIntegerField,
	reflect.TypeOf(pq.Float64Array{}): source.KindFloatField,
	reflect.TypeOf(pq.BoolArray{}):    source.KindBooleanField,
	reflect.TypeOf(pq.ByteaArray{}):   source.KindBinaryField,
}

// columnTypes maps the keyword of an explicit `type:` tag to a field kind
var columnTypes = map[string]source.Kind{
	"date":               source.KindDateField,
	"time":               source.KindTimeField,
	"timestamp":          source.KindDateTimeField,
	"timestamptz":        source.KindDateTimeField,
	"datetime":           source.KindDateTimeField,
	"json":               source.KindJSONField,
	"jsonb":              source.KindJSONField,
	"text":               source.KindTextField,
	"longtext":           source.KindTextField,
	"uuid":               source.KindUUIDField,
	"inet":               source.KindGenericIPAddressField,
	"interval":           source.KindDurationField,
	"decimal":            source.KindDecimalField,
	"numeric":            source.KindDecimalField,
	"smallint":           source.KindSmallIntegerField,
	"bigint":             source.KindBigIntegerField,
	"boolean":            source.KindBooleanField,
	"bytea":              source.KindBinaryField,
	"blob":               source.KindBinaryField,
	"varchar":            source.KindCharField,
	"char":               source.KindCharField,
	"geometry":           source.KindGeometryField,
	"point":              source.KindPointField,
	"linestring":         source.KindLineStringField,
	"polygon":            source.KindPolygonField,
	"multipoint":         source.KindMultiPointField,
	"multilinestring":    source.KindMultiLineStringField,
	"multipolygon":       source.KindMultiPolygonField,
	"geometrycollection": source.KindGeometryCollectionField,
}

// classify returns the field kind of a GORM field and, for arrays, the kind
// of its elements
func classify(f *schema.Field) (source.Kind, source.Kind) {
	if kind, ok := f.TagSettings["KIND"]; ok && kind != "" {
		return source.Kind(kind), ""
	}

	typ := f.IndirectFieldType
	if base, ok := arrayBases[typ]; ok {
		return source.KindArrayField, base
	}
	if kind, ok := wellKnown[typ]; ok {
		return kind, ""
	}

	if tag, ok := f.TagSettings["TYPE"]; ok {
		keyword := strings.ToLower(strings.TrimSpace(tag))
		if i := strings.IndexAny(keyword, "( "); i >= 0 {
			keyword = keyword[:i]
		}
		if kind, ok := columnTypes[keyword]; ok {
			return kind, ""
		}
	}

	switch f.GORMDataType {
	case schema.Bool:
		return source.KindBooleanField, ""
	case schema.Int:
		return integerKind(f, false), ""
	case schema.Uint:
		return integerKind(f, true), ""
	case schema.Float:
		if f.Precision > 0 {
			return source.KindDecimalField, ""
		}
		return source.KindFloatField, ""
	case schema.String:
		if f.Size > 0 {
			return source.KindCharField, ""
		}
		return source.KindTextField, ""
	case schema.Time:
		return source.KindDateTimeField, ""
	case schema.Bytes:
		return source.KindBinaryField, ""
	}

	// custom data types keep their name and must be aliased
	return source.Kind(f.DataType), ""
}

func integerKind(f *schema.Field, unsigned bool) source.Kind {
	if f.PrimaryKey && f.AutoIncrement {
		if f.Size > 32 {
			return source.KindBigAutoField
		}
		return source.KindAutoField
	}

	switch {
	case f.Size > 32 && unsigned:
		return source.KindPositiveBigIntegerField
	case f.Size > 32:
		return source.KindBigIntegerField
	case f.Size > 0 && f.Size <= 16 && unsigned:
		return source.KindPositiveSmallIntegerField
	case f.Size > 0 && f.Size <= 16:
		return source.KindSmallIntegerField
	case unsigned:
		return source.KindPositiveIntegerField
	default:
		return source.KindIntegerField
	}
}

// nullable reports whether a field's Go type can hold NULL
func nullable(f *schema.Field) bool {
	if f.NotNull || f.PrimaryKey {
		return false
	}
	if f.FieldType.Kind() == reflect.Ptr {
		return true
	}
	typ := f.IndirectFieldType
	if typ == reflect.TypeOf(gorm.DeletedAt{}) {
		return true
	}
	return typ.PkgPath() == "database/sql" && strings.HasPrefix(typ.Name(), "Null")
}
