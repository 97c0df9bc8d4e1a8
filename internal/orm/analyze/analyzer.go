package analyze

import (
	"errors"
	"fmt"
	"strings"

	"github.com/conduit-lang/schemabridge/internal/orm/mapper"
	"github.com/conduit-lang/schemabridge/internal/orm/source"
	"github.com/conduit-lang/schemabridge/internal/orm/typemap"
)

var (
	// ErrAbstractModel is returned when an abstract model is analyzed
	ErrAbstractModel = errors.New("abstract model")

	// ErrUnresolvedRelationTarget marks relations whose target model is
	// unknown
	ErrUnresolvedRelationTarget = mapper.ErrUnresolvedRelationTarget
)

// Analyzer produces descriptors using a type mapping registry
type Analyzer struct {
	registry *typemap.Registry
}

// New creates an analyzer. A nil registry means the default table.
func New(registry *typemap.Registry) *Analyzer {
	if registry == nil {
		registry = typemap.NewDefaultRegistry()
	}
	return &Analyzer{registry: registry}
}

// Registry returns the analyzer's type mapping registry
func (a *Analyzer) Registry() *typemap.Registry {
	return a.registry
}

// Model analyzes a model: plain fields in declaration order, then the
// owning many-to-many accessors. Reverse accessors are skipped.
func (a *Analyzer) Model(m *source.Model) (*ModelDescriptor, error) {
	if m == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}
	if m.Abstract {
		return nil, fmt.Errorf("%w: %s", ErrAbstractModel, m)
	}
	if m.Table == "" {
		return nil, fmt.Errorf("model %s has no table name", m)
	}

	desc := &ModelDescriptor{
		Table:  m.Table,
		Model:  m,
		Fields: make([]*FieldDescriptor, 0, len(m.Fields)+len(m.ManyToMany)),
	}
	for _, f := range m.Fields {
		desc.Fields = append(desc.Fields, a.Field(f))
	}
	for _, acc := range m.ManyToMany {
		if fd := a.ManyToMany(acc); fd != nil {
			desc.Fields = append(desc.Fields, fd)
		}
	}
	return desc, nil
}

// Field analyzes one column-backed field. Failures are reported on the
// descriptor's Problem; an unmapped kind carries typemap.ErrUnmappedFieldKind.
func (a *Analyzer) Field(f *source.Field) *FieldDescriptor {
	fd := &FieldDescriptor{
		Name:       f.Name,
		Column:     f.ColumnName(),
		Kind:       f.Kind,
		PrimaryKey: f.PrimaryKey,
		Unique:     f.Unique || f.Kind == source.KindOneToOneField,
		Nullable:   f.Null && !f.PrimaryKey,
		Source:     f,
	}
	if f.Default != nil {
		fd.Default = &mapper.DefaultValue{
			Value:      f.Default.Value,
			Expression: f.Default.Expression,
		}
	}

	if f.Kind.IsToOne() && (f.Relation == nil || f.Relation.Target == nil) {
		fd.Problem = fmt.Errorf("%w: %s", ErrUnresolvedRelationTarget, f.Name)
		return fd
	}

	fragment, err := a.registry.Derive(f)
	if err != nil {
		fd.Problem = err
		return fd
	}
	fd.Types = fragment.Types
	fd.TypeOptions = fragment.Options
	fd.AutoIncrement = fragment.AutoIncrement && f.PrimaryKey && !f.Kind.IsToOne()
	if fragment.ForceNull && !f.PrimaryKey {
		fd.Nullable = true
	}

	if f.Kind.IsToOne() {
		target := f.Relation.Target
		targetField := f.Relation.TargetField
		fd.ForeignKey = &FKDescriptor{
			Column:   target.Table + "." + targetField.ColumnName(),
			OnDelete: NormalizeOnDelete(f.Relation.OnDelete),
		}
		fd.Relation = &RelationDescriptor{
			Target:      target.Table,
			TargetModel: target,
			LogicalName: f.Name,
			BackRef:     f.Relation.RelatedName,
			Cardinality: One,
		}
	}

	return fd
}

// ManyToMany analyzes a many-to-many accessor. It returns nil for reverse
// accessors, which are declared from the owning side.
func (a *Analyzer) ManyToMany(acc *source.ManyToMany) *FieldDescriptor {
	if acc.Reverse {
		return nil
	}

	fd := &FieldDescriptor{
		Name:   acc.Name,
		Column: acc.Name,
		Kind:   source.KindManyToManyField,
	}
	if acc.Target == nil || acc.Through == nil {
		fd.Problem = fmt.Errorf("%w: %s", ErrUnresolvedRelationTarget, acc.Name)
		return fd
	}

	fd.Relation = &RelationDescriptor{
		Target:        acc.Target.Table,
		TargetModel:   acc.Target,
		LogicalName:   acc.Name,
		BackRef:       acc.RelatedName,
		Secondary:     acc.Through,
		LocalKey:      acc.LocalKey,
		ThroughLocal:  acc.ThroughLocal,
		RemoteKey:     acc.RemoteKey,
		ThroughRemote: acc.ThroughRemote,
		Cardinality:   Many,
	}
	return fd
}

// onDeleteActions maps source delete policies to SQL referential actions
var onDeleteActions = map[string]string{
	"CASCADE":     "CASCADE",
	"SET_NULL":    "SET NULL",
	"SET NULL":    "SET NULL",
	"SET_DEFAULT": "SET DEFAULT",
	"SET DEFAULT": "SET DEFAULT",
	"PROTECT":     "RESTRICT",
	"RESTRICT":    "RESTRICT",
	"DO_NOTHING":  "NO ACTION",
	"NO ACTION":   "NO ACTION",
	"NO_ACTION":   "NO ACTION",
}

// NormalizeOnDelete converts a delete policy name to a referential action.
// Unknown policies are upper-cased with underscores replaced by spaces.
func NormalizeOnDelete(policy string) string {
	p := strings.ToUpper(strings.TrimSpace(policy))
	if p == "" {
		return ""
	}
	if action, ok := onDeleteActions[p]; ok {
		return action
	}
	return strings.ReplaceAll(p, "_", " ")
}
