package typemap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conduit-lang/schemabridge/internal/orm/mapper"
	"github.com/conduit-lang/schemabridge/internal/orm/source"
)

const (
	def      = mapper.DialectDefault
	postgres = mapper.DialectPostgreSQL
	mysql    = mapper.DialectMySQL
	oracle   = mapper.DialectOracle
)

// Column type constructors used by the default table

func Integer(o Options) (mapper.ColumnType, error) {
	return mapper.Integer{Unsigned: o.Unsigned}, nil
}

func SmallInteger(o Options) (mapper.ColumnType, error) {
	return mapper.SmallInteger{Unsigned: o.Unsigned}, nil
}

func BigInteger(o Options) (mapper.ColumnType, error) {
	return mapper.BigInteger{Unsigned: o.Unsigned}, nil
}

func Numeric(o Options) (mapper.ColumnType, error) {
	return mapper.Numeric{Precision: o.Precision, Scale: o.Scale}, nil
}

func Decimal(o Options) (mapper.ColumnType, error) {
	return mapper.Numeric{Keyword: "DECIMAL", Precision: o.Precision, Scale: o.Scale}, nil
}

func Number(o Options) (mapper.ColumnType, error) {
	return mapper.Number{Precision: o.Precision, Scale: o.Scale}, nil
}

func Float(Options) (mapper.ColumnType, error) {
	return mapper.Float{}, nil
}

func DoublePrecision(Options) (mapper.ColumnType, error) {
	return mapper.DoublePrecision, nil
}

func Varchar(o Options) (mapper.ColumnType, error) {
	return mapper.Varchar(o.Length), nil
}

func Char(o Options) (mapper.ColumnType, error) {
	return mapper.Char(o.Length), nil
}

func NVarchar2(o Options) (mapper.ColumnType, error) {
	return mapper.String{Keyword: "NVARCHAR2", Length: o.Length}, nil
}

func Varchar2(o Options) (mapper.ColumnType, error) {
	return mapper.String{Keyword: "VARCHAR2", Length: o.Length}, nil
}

func Text(Options) (mapper.ColumnType, error) {
	return mapper.Text{}, nil
}

func LongText(Options) (mapper.ColumnType, error) {
	return mapper.Named{Keyword: "LONGTEXT"}, nil
}

func NClob(Options) (mapper.ColumnType, error) {
	return mapper.Named{Keyword: "NCLOB"}, nil
}

func Binary(Options) (mapper.ColumnType, error) {
	return mapper.LargeBinary{}, nil
}

func Bytea(Options) (mapper.ColumnType, error) {
	return mapper.Bytea, nil
}

func LongBlob(Options) (mapper.ColumnType, error) {
	return mapper.LongBlob, nil
}

func Blob(Options) (mapper.ColumnType, error) {
	return mapper.Named{Keyword: "BLOB"}, nil
}

func Interval(o Options) (mapper.ColumnType, error) {
	if o.DayPrecision > 0 || o.SecondPrecision > 0 {
		return mapper.Named{Keyword: fmt.Sprintf("INTERVAL DAY(%d) TO SECOND(%d)", o.DayPrecision, o.SecondPrecision)}, nil
	}
	return mapper.Interval, nil
}

func UUID(Options) (mapper.ColumnType, error) {
	return mapper.UUID, nil
}

func Inet(Options) (mapper.ColumnType, error) {
	return mapper.Inet, nil
}

func DateTime(Options) (mapper.ColumnType, error) {
	return mapper.DateTime{}, nil
}

func Timestamp(Options) (mapper.ColumnType, error) {
	return mapper.Named{Keyword: "TIMESTAMP"}, nil
}

func Date(Options) (mapper.ColumnType, error) {
	return mapper.Date{}, nil
}

func Time(Options) (mapper.ColumnType, error) {
	return mapper.Time{}, nil
}

func Boolean(Options) (mapper.ColumnType, error) {
	return mapper.Boolean{}, nil
}

func JSON(Options) (mapper.ColumnType, error) {
	return mapper.JSON{}, nil
}

func Array(o Options) (mapper.ColumnType, error) {
	if o.Item == nil {
		return nil, fmt.Errorf("array requires an item type")
	}
	item, err := o.Item(Options{})
	if err != nil {
		return nil, err
	}
	return mapper.Array{Item: item}, nil
}

func Geometry(o Options) (mapper.ColumnType, error) {
	return mapper.Geometry{
		GeometryType: o.GeometryType,
		SRID:         o.SRID,
		Dimension:    o.Dimension,
		Geography:    o.Geography,
	}, nil
}

// dialects is a per-dialect constructor table
type dialects map[mapper.Dialect]TypeConstructor

// static builds a resolver with fixed constructors and options
func static(types dialects, options map[mapper.Dialect]Options) Resolver {
	return Static(Fragment{Types: types, Options: options})
}

// lengthDerived builds a resolver whose options carry the field's max length
// for every dialect in types
func lengthDerived(types dialects) Resolver {
	return ResolverFunc(func(f *source.Field) (Resolution, error) {
		options := make(map[mapper.Dialect]Options, len(types))
		for d := range types {
			options[d] = Options{Length: f.MaxLength}
		}
		return Resolved{Fragment: Fragment{Types: types, Options: options}}, nil
	})
}

// precisionDerived builds a resolver whose options carry the field's digits
// and decimal places for every dialect in types
func precisionDerived(types dialects) Resolver {
	return ResolverFunc(func(f *source.Field) (Resolution, error) {
		options := make(map[mapper.Dialect]Options, len(types))
		for d := range types {
			options[d] = Options{Precision: f.MaxDigits, Scale: f.DecimalPlaces}
		}
		return Resolved{Fragment: Fragment{Types: types, Options: options}}, nil
	})
}

// relatedField resolves a to-one relation as the field it targets
var relatedField = ResolverFunc(func(f *source.Field) (Resolution, error) {
	if f.Relation == nil || f.Relation.TargetField == nil {
		return nil, fmt.Errorf("%s field %s has no target field", f.Kind, f.Name)
	}
	return Deferred{Field: f.Relation.TargetField}, nil
})

// arrayOf resolves an ArrayField from its base field: the default item is
// the base's default type, the PostgreSQL item its PostgreSQL override.
func (r *Registry) arrayOf() Resolver {
	types := dialects{def: Array, postgres: Array, mysql: Array, oracle: Array}
	return ResolverFunc(func(f *source.Field) (Resolution, error) {
		if f.Base == nil {
			return nil, fmt.Errorf("array field %s has no base field", f.Name)
		}
		base, err := r.Derive(f.Base)
		if err != nil {
			return nil, fmt.Errorf("array field %s: %w", f.Name, err)
		}
		defaultItem, _, ok := base.For(def)
		if !ok {
			return nil, fmt.Errorf("array field %s: %w: %s", f.Name, ErrUnmappedFieldKind, f.Base.Kind)
		}
		postgresItem, _, _ := base.For(postgres)

		return Resolved{Fragment: Fragment{
			Types: types,
			Options: map[mapper.Dialect]Options{
				def:      {Item: defaultItem},
				postgres: {Item: postgresItem},
			},
		}}, nil
	})
}

// geometryTypes maps spatial kinds to their geometry type
var geometryTypes = map[source.Kind]string{
	source.KindGeometryField:           "GEOMETRY",
	source.KindPointField:              "POINT",
	source.KindLineStringField:         "LINESTRING",
	source.KindPolygonField:            "POLYGON",
	source.KindMultiPointField:         "MULTIPOINT",
	source.KindMultiLineStringField:    "MULTILINESTRING",
	source.KindMultiPolygonField:       "MULTIPOLYGON",
	source.KindGeometryCollectionField: "GEOMETRYCOLLECTION",
}

// DefaultSRID is the spatial reference used when a field declares none
const DefaultSRID = 4326

// spatial resolves geometry kinds from field settings: GEOMETRY_TYPE, SRID,
// DIM and GEOGRAPHY
func spatial(kind source.Kind) Resolver {
	return ResolverFunc(func(f *source.Field) (Resolution, error) {
		opts := Options{
			GeometryType: geometryTypes[kind],
			SRID:         DefaultSRID,
			Dimension:    2,
		}
		if v, ok := f.Setting("GEOMETRY_TYPE"); ok && v != "" {
			opts.GeometryType = strings.ToUpper(v)
		}
		if v, ok := f.Setting("SRID"); ok && v != "" {
			srid, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("field %s: invalid srid %q", f.Name, v)
			}
			opts.SRID = srid
		}
		if v, ok := f.Setting("DIM"); ok && v != "" {
			dim, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("field %s: invalid dim %q", f.Name, v)
			}
			opts.Dimension = dim
		}
		if v, ok := f.Setting("GEOGRAPHY"); ok {
			switch strings.ToUpper(v) {
			case "", "GEOGRAPHY":
				opts.Geography = true
			default:
				geography, err := strconv.ParseBool(v)
				if err != nil {
					return nil, fmt.Errorf("field %s: invalid geography flag %q", f.Name, v)
				}
				opts.Geography = geography
			}
		}

		return Resolved{Fragment: Fragment{
			Types:   dialects{def: Geometry},
			Options: map[mapper.Dialect]Options{def: opts},
		}}, nil
	})
}

// NewDefaultRegistry returns a registry populated with the built-in field
// kinds
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	integers := dialects{def: Integer, postgres: Integer, mysql: Integer, oracle: Number}
	smallIntegers := dialects{def: SmallInteger, postgres: SmallInteger, mysql: SmallInteger, oracle: Number}
	bigIntegers := dialects{def: BigInteger, postgres: BigInteger, mysql: BigInteger, oracle: Number}
	oracle11 := map[mapper.Dialect]Options{oracle: {Precision: 11}}
	oracle19 := map[mapper.Dialect]Options{oracle: {Precision: 19}}
	unsigned11 := map[mapper.Dialect]Options{mysql: {Unsigned: true}, oracle: {Precision: 11}}
	unsigned19 := map[mapper.Dialect]Options{mysql: {Unsigned: true}, oracle: {Precision: 19}}

	r.Register(source.KindAutoField, Static(Fragment{Types: integers, Options: oracle11, AutoIncrement: true}))
	r.Register(source.KindBigAutoField, Static(Fragment{Types: bigIntegers, Options: oracle19, AutoIncrement: true}))
	r.Register(source.KindIntegerField, static(integers, oracle11))
	r.Register(source.KindPositiveIntegerField, static(integers, unsigned11))
	r.Register(source.KindSmallIntegerField, static(smallIntegers, oracle11))
	r.Register(source.KindPositiveSmallIntegerField, static(smallIntegers, unsigned11))
	r.Register(source.KindBigIntegerField, static(bigIntegers, oracle19))
	r.Register(source.KindPositiveBigIntegerField, static(bigIntegers, unsigned19))

	r.Register(source.KindDecimalField, precisionDerived(dialects{def: Decimal, postgres: Numeric, mysql: Numeric, oracle: Number}))
	r.Register(source.KindFloatField, static(dialects{def: Float, postgres: Float, mysql: Float, oracle: DoublePrecision}, nil))

	nvarchars := dialects{def: Varchar, postgres: Varchar, mysql: Varchar, oracle: NVarchar2}
	varchars := dialects{def: Varchar, postgres: Varchar, mysql: Varchar, oracle: Varchar2}
	for _, kind := range []source.Kind{
		source.KindCharField,
		source.KindSlugField,
		source.KindFileField,
		source.KindFilePathField,
		source.KindImageField,
	} {
		r.Register(kind, lengthDerived(nvarchars))
	}
	for _, kind := range []source.Kind{
		source.KindURLField,
		source.KindEmailField,
		source.KindCommaSeparatedIntegerField,
	} {
		r.Register(kind, lengthDerived(varchars))
	}

	r.Register(source.KindGenericIPAddressField, static(
		dialects{def: Char, postgres: Inet, mysql: Char, oracle: Varchar2},
		map[mapper.Dialect]Options{def: {Length: 39}, mysql: {Length: 39}, oracle: {Length: 39}}))
	r.Register(source.KindBinaryField, static(dialects{def: Binary, postgres: Bytea, mysql: LongBlob, oracle: Blob}, nil))
	r.Register(source.KindDurationField, static(
		dialects{def: BigInteger, postgres: Interval, mysql: BigInteger, oracle: Interval},
		map[mapper.Dialect]Options{oracle: {DayPrecision: 9, SecondPrecision: 6}}))
	r.Register(source.KindUUIDField, static(
		dialects{def: Char, postgres: UUID, mysql: Char, oracle: Varchar2},
		map[mapper.Dialect]Options{def: {Length: 32}, mysql: {Length: 32}, oracle: {Length: 32}}))
	r.Register(source.KindTextField, static(dialects{def: Text, postgres: Text, mysql: LongText, oracle: NClob}, nil))

	r.Register(source.KindDateTimeField, static(dialects{def: DateTime, postgres: DateTime, mysql: DateTime, oracle: Timestamp}, nil))
	r.Register(source.KindDateField, static(dialects{def: Date, postgres: Date, mysql: Date, oracle: Date}, nil))
	r.Register(source.KindTimeField, static(dialects{def: Time, postgres: Time, mysql: Time, oracle: Timestamp}, nil))

	booleans := dialects{def: Boolean, postgres: Boolean, mysql: Boolean, oracle: Number}
	oracleFlag := map[mapper.Dialect]Options{oracle: {Precision: 1}}
	r.Register(source.KindBooleanField, static(booleans, oracleFlag))
	r.Register(source.KindNullBooleanField, Static(Fragment{Types: booleans, Options: oracleFlag, ForceNull: true}))

	r.Register(source.KindForeignKey, relatedField)
	r.Register(source.KindOneToOneField, relatedField)

	r.Register(source.KindArrayField, r.arrayOf())
	r.Register(source.KindJSONField, static(dialects{def: JSON, postgres: JSON, mysql: JSON, oracle: JSON}, nil))

	for kind := range geometryTypes {
		r.Register(kind, spatial(kind))
	}

	return r
}
