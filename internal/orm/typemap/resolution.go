// Package typemap is the type mapping table: it associates source field
// kinds with target column type constructors, keyed by destination dialect.
//
// Each kind carries a Resolver. A resolver inspects the concrete field and
// either returns a finished Fragment (Resolved) or hands over to another
// resolver, possibly for another field (Deferred). Registry.Derive iterates
// until a Resolved value is reached.
package typemap

import (
	"errors"

	"github.com/conduit-lang/schemabridge/internal/orm/mapper"
	"github.com/conduit-lang/schemabridge/internal/orm/source"
)

// MaxDeriveSteps bounds the number of Deferred hops for one field
const MaxDeriveSteps = 8

var (
	// ErrUnmappedFieldKind is returned when a field kind has no entry for
	// the requested dialect and no default entry
	ErrUnmappedFieldKind = errors.New("unmapped field kind")

	// ErrDeriveLoop is returned when a chain of Deferred resolutions does
	// not terminate within MaxDeriveSteps
	ErrDeriveLoop = errors.New("derived options did not resolve")
)

// TypeConstructor builds a column type from its options
type TypeConstructor func(o Options) (mapper.ColumnType, error)

// Options are the constructor options for one dialect
type Options struct {
	Length    int
	Precision int
	Scale     int
	Unsigned  bool

	// Interval precisions (Oracle)
	DayPrecision    int
	SecondPrecision int

	// Item is the element type of an array
	Item TypeConstructor

	// Spatial options
	GeometryType string
	SRID         int
	Dimension    int
	Geography    bool
}

// Fragment is a (partial) type mapping for one field
type Fragment struct {
	Types   map[mapper.Dialect]TypeConstructor
	Options map[mapper.Dialect]Options

	// AutoIncrement marks auto-incrementing key kinds
	AutoIncrement bool

	// ForceNull makes the column nullable regardless of the source field
	ForceNull bool
}

// For selects the constructor and options for a dialect, falling back to
// the default entry when the dialect has no override
func (f Fragment) For(d mapper.Dialect) (TypeConstructor, Options, bool) {
	return Select(f.Types, f.Options, d)
}

// Select picks the constructor for d, or the default one. Options are taken
// from the same key as the constructor.
func Select(types map[mapper.Dialect]TypeConstructor, options map[mapper.Dialect]Options, d mapper.Dialect) (TypeConstructor, Options, bool) {
	key := d
	if types[key] == nil {
		key = mapper.DialectDefault
	}
	ctor := types[key]
	if ctor == nil {
		return nil, Options{}, false
	}
	return ctor, options[key], true
}

// merge folds src into f; src wins per dialect
func (f *Fragment) merge(src Fragment) {
	if len(src.Types) > 0 && f.Types == nil {
		f.Types = make(map[mapper.Dialect]TypeConstructor, len(src.Types))
	}
	for d, ctor := range src.Types {
		f.Types[d] = ctor
	}
	if len(src.Options) > 0 && f.Options == nil {
		f.Options = make(map[mapper.Dialect]Options, len(src.Options))
	}
	for d, o := range src.Options {
		f.Options[d] = o
	}
	f.AutoIncrement = f.AutoIncrement || src.AutoIncrement
	f.ForceNull = f.ForceNull || src.ForceNull
}

// Resolution is the result of one resolver step: Resolved or Deferred
type Resolution interface {
	resolution()
}

// Resolved terminates resolution
type Resolved struct {
	Fragment Fragment
}

// Deferred continues resolution. Fragment is kept and overridden by what
// the next step produces. Field replaces the field being resolved when set;
// Next replaces the resolver, nil meaning the registry entry of the
// (possibly replaced) field's kind.
type Deferred struct {
	Fragment Fragment
	Field    *source.Field
	Next     Resolver
}

func (Resolved) resolution() {}
func (Deferred) resolution() {}

// Resolver resolves the type mapping of one field
type Resolver interface {
	Resolve(f *source.Field) (Resolution, error)
}

// ResolverFunc adapts a function to Resolver
type ResolverFunc func(f *source.Field) (Resolution, error)

// Resolve calls fn(f)
func (fn ResolverFunc) Resolve(f *source.Field) (Resolution, error) {
	return fn(f)
}

// Static returns a resolver that always resolves to the same fragment
func Static(fragment Fragment) Resolver {
	return ResolverFunc(func(*source.Field) (Resolution, error) {
		return Resolved{Fragment: fragment}, nil
	})
}
