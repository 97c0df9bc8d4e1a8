// Package analyze turns source models into normalized descriptors: one
// FieldDescriptor per field with its column options and per-dialect type
// mapping, plus relation fragments for foreign keys, one-to-one fields and
// owning many-to-many accessors.
package analyze

import (
	"fmt"

	"github.com/conduit-lang/schemabridge/internal/orm/mapper"
	"github.com/conduit-lang/schemabridge/internal/orm/source"
	"github.com/conduit-lang/schemabridge/internal/orm/typemap"
)

// Cardinality of a relation
type Cardinality int

const (
	One Cardinality = iota
	Many
)

func (c Cardinality) String() string {
	if c == Many {
		return "many"
	}
	return "one"
}

// FKDescriptor is the foreign-key constraint of a to-one field
type FKDescriptor struct {
	// Column is the referenced column as "table.column"
	Column   string
	OnDelete string
}

// RelationDescriptor describes a relationship to declare
type RelationDescriptor struct {
	// Target is the target table name
	Target      string
	TargetModel *source.Model

	// LogicalName is the relationship attribute name
	LogicalName string

	// BackRef is the reverse accessor name as declared by the source; it may
	// carry a trailing '+'
	BackRef string

	// Secondary is the through model of a many-to-many relation
	Secondary     *source.Model
	LocalKey      string
	ThroughLocal  string
	RemoteKey     string
	ThroughRemote string

	Cardinality Cardinality
}

// FieldDescriptor is the normalized form of one source field
type FieldDescriptor struct {
	// Name is the attribute name, Column the column name
	Name   string
	Column string
	Kind   source.Kind

	PrimaryKey    bool
	Unique        bool
	Nullable      bool
	AutoIncrement bool

	// Default is nil when the source declares no default
	Default *mapper.DefaultValue

	Types       map[mapper.Dialect]typemap.TypeConstructor
	TypeOptions map[mapper.Dialect]typemap.Options

	ForeignKey *FKDescriptor
	Relation   *RelationDescriptor

	// Problem is set when the field could not be analyzed
	Problem error

	// Source is the analyzed field; nil for many-to-many accessors
	Source *source.Field
}

// IsRelation reports whether the descriptor is relation-classified. To-one
// relations also carry a column.
func (fd *FieldDescriptor) IsRelation() bool {
	return fd.Relation != nil
}

// IsColumn reports whether the descriptor is a plain column
func (fd *FieldDescriptor) IsColumn() bool {
	return fd.Relation == nil
}

// HasColumn reports whether the descriptor produces a column
func (fd *FieldDescriptor) HasColumn() bool {
	return fd.Source != nil
}

// TypeFor selects the type constructor for a dialect, falling back to the
// default entry
func (fd *FieldDescriptor) TypeFor(d mapper.Dialect) (typemap.TypeConstructor, typemap.Options, bool) {
	return typemap.Select(fd.Types, fd.TypeOptions, d)
}

// Problem records a field that could not be analyzed
type Problem struct {
	Model string
	Field string
	Kind  source.Kind
	Err   error
}

func (p Problem) Error() string {
	return fmt.Sprintf("%s.%s (%s): %v", p.Model, p.Field, p.Kind, p.Err)
}

func (p Problem) Unwrap() error {
	return p.Err
}

// ModelDescriptor is the normalized form of one source model
type ModelDescriptor struct {
	Table  string
	Model  *source.Model
	Fields []*FieldDescriptor
}

// Field returns a descriptor by attribute name
func (md *ModelDescriptor) Field(name string) *FieldDescriptor {
	for _, fd := range md.Fields {
		if fd.Name == name || fd.Column == name {
			return fd
		}
	}
	return nil
}

// Problems returns the problems of all fields in order
func (md *ModelDescriptor) Problems() []Problem {
	var problems []Problem
	for _, fd := range md.Fields {
		if fd.Problem == nil {
			continue
		}
		problems = append(problems, Problem{
			Model: md.Model.String(),
			Field: fd.Name,
			Kind:  fd.Kind,
			Err:   fd.Problem,
		})
	}
	return problems
}
