// Package source defines the introspection surface schemabridge consumes from
// a source ORM: models, their ordered fields and their many-to-many accessors.
//
// The types here are deliberately plain data. Adapters (see package inspect
// for GORM, and LoadManifest for YAML manifests) populate them; the analyzer
// and the declaration engine only ever read them.
package source

import (
	"fmt"
	"strings"
)

// Model describes one source model
type Model struct {
	// ID is the stable identity of the model. Two *Model values with the
	// same ID are treated as the same model by the declaration engine.
	ID string

	// Name is the model's object name (e.g. "BookAuthor")
	Name string

	// Module is the name of the module the model belongs to
	Module string

	// Table is the destination table name
	Table string

	// Abstract models are never declared
	Abstract bool

	// Fields are the plain (column-backed) fields in declaration order
	Fields []*Field

	// ManyToMany are the many-to-many accessors, owning and reverse
	ManyToMany []*ManyToMany
}

// Field describes one column-backed source field
type Field struct {
	// Name is the logical attribute name (e.g. "author")
	Name string

	// Column is the attribute/column name (e.g. "author_id").
	// Empty means the same as Name.
	Column string

	Kind       Kind
	PrimaryKey bool
	Unique     bool
	Null       bool

	// Default is nil when the source declares no default
	Default *Default

	// Per-instance constraints consumed by derived-option callbacks
	MaxLength     int
	MaxDigits     int
	DecimalPlaces int

	// Base is the element field of an ArrayField
	Base *Field

	// Settings carries raw adapter settings (e.g. GORM tag settings) for
	// custom derived-option callbacks
	Settings map[string]string

	// Relation is set for ForeignKey and OneToOneField kinds
	Relation *Relation
}

// Default is an explicitly declared default value
type Default struct {
	// Value is a literal default value
	Value interface{}

	// Expression is a raw SQL expression (e.g. "CURRENT_TIMESTAMP"). It
	// takes precedence over Value when set.
	Expression string
}

// Relation describes the target of a to-one relation
type Relation struct {
	// Target is the related model; nil when it cannot be resolved
	Target *Model

	// TargetField is the referenced field on the target (usually its pk)
	TargetField *Field

	// OnDelete is the delete policy (CASCADE, SET NULL, ...)
	OnDelete string

	// RelatedName is the reverse accessor name on the target
	RelatedName string
}

// ManyToMany describes a many-to-many accessor
type ManyToMany struct {
	// Name is the accessor name on the owning model
	Name string

	// Target is the related model
	Target *Model

	// Through is the junction model
	Through *Model

	// LocalKey is the referenced column on the owning model
	LocalKey string
	// ThroughLocal is the junction column that references LocalKey
	ThroughLocal string
	// RemoteKey is the referenced column on the target model
	RemoteKey string
	// ThroughRemote is the junction column that references RemoteKey
	ThroughRemote string

	// RelatedName is the reverse accessor name on the target
	RelatedName string

	// Reverse marks the mirror accessor of a relation owned elsewhere
	Reverse bool
}

// ColumnName returns the attribute/column name of the field
func (f *Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// Setting returns an adapter setting, matched case-insensitively
func (f *Field) Setting(key string) (string, bool) {
	if f.Settings == nil {
		return "", false
	}
	if v, ok := f.Settings[key]; ok {
		return v, true
	}
	v, ok := f.Settings[strings.ToUpper(key)]
	return v, ok
}

// HasDefault reports whether the field declares a default
func (f *Field) HasDefault() bool {
	return f.Default != nil
}

// PrimaryKey returns the model's primary key field
func (m *Model) PrimaryKey() (*Field, error) {
	for _, f := range m.Fields {
		if f.PrimaryKey {
			return f, nil
		}
	}
	return nil, fmt.Errorf("model %s has no primary key", m.Name)
}

// Field returns the field with the given logical or column name
func (m *Model) Field(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name || f.ColumnName() == name {
			return f
		}
	}
	return nil
}

// String returns a readable identifier for logs
func (m *Model) String() string {
	if m.Module == "" {
		return m.Name
	}
	return m.Module + "." + m.Name
}
