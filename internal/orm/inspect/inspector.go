// Package inspect reads GORM models through gorm.io/gorm/schema and turns
// them into source models.
package inspect

import (
	"fmt"
	"path"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm/schema"

	"github.com/conduit-lang/schemabridge/internal/orm/source"
	strs "github.com/conduit-lang/schemabridge/internal/util/strings"
)

// Tag settings read from `gorm:"..."` tags in addition to GORM's own
const (
	// SettingKind forces the source field kind (kind:UUIDField)
	SettingKind = "KIND"
	// SettingBackRef names the reverse accessor (backref:books)
	SettingBackRef = "BACKREF"
	// SettingReverse marks the mirror side of a many2many (reverse)
	SettingReverse = "REVERSE"
)

// DefaultOnDelete is used when a belongs-to relation has no constraint tag
const DefaultOnDelete = "CASCADE"

// Inspector converts GORM models to source models. Models are memoized by
// Go type so repeated and cyclic references share one *source.Model.
type Inspector struct {
	namer  schema.Namer
	cache  *sync.Map
	logger *zap.Logger

	mu       sync.Mutex
	models   map[reflect.Type]*source.Model
	throughs map[string]*source.Model
}

// Option configures an Inspector
type Option func(*Inspector)

// WithNamer sets the naming strategy; the default is schema.NamingStrategy{}
func WithNamer(namer schema.Namer) Option {
	return func(i *Inspector) {
		i.namer = namer
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(i *Inspector) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// New creates an inspector
func New(opts ...Option) *Inspector {
	i := &Inspector{
		namer:    schema.NamingStrategy{},
		cache:    &sync.Map{},
		logger:   zap.NewNop(),
		models:   make(map[reflect.Type]*source.Model),
		throughs: make(map[string]*source.Model),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Inspect parses a GORM model (a struct or a pointer to one)
func (i *Inspector) Inspect(model interface{}) (*source.Model, error) {
	s, err := schema.Parse(model, i.cache, i.namer)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	return i.fromSchema(s), nil
}

// Module inspects models and binds them, and the junction models they own,
// into a module of the given name
func (i *Inspector) Module(name string, models ...interface{}) (*source.Module, error) {
	module := source.NewModule(name)
	for _, model := range models {
		m, err := i.Inspect(model)
		if err != nil {
			return nil, err
		}

		i.mu.Lock()
		owned := m.Module
		m.Module = name
		for _, acc := range m.ManyToMany {
			if !acc.Reverse && acc.Through != nil && acc.Through.Module == owned {
				acc.Through.Module = name
			}
		}
		i.mu.Unlock()

		module.Add(m.Name, m)
	}
	return module, nil
}

// fromSchema converts a parsed schema; callers hold i.mu
func (i *Inspector) fromSchema(s *schema.Schema) *source.Model {
	if m, ok := i.models[s.ModelType]; ok {
		return m
	}

	m := &source.Model{
		ID:     s.ModelType.PkgPath() + "." + s.ModelType.Name(),
		Name:   s.ModelType.Name(),
		Module: path.Base(s.ModelType.PkgPath()),
		Table:  s.Table,
	}
	// registered before relations are followed so cycles terminate
	i.models[s.ModelType] = m

	byColumn := make(map[string]*source.Field)
	for _, f := range s.Fields {
		if f.DBName == "" || f.IgnoreMigration {
			continue
		}
		field := i.field(f)
		m.Fields = append(m.Fields, field)
		byColumn[f.DBName] = field
	}

	for _, rel := range s.Relationships.BelongsTo {
		i.belongsTo(m, s, rel, byColumn)
	}
	for _, rel := range s.Relationships.Many2Many {
		if acc := i.many2many(m, rel); acc != nil {
			m.ManyToMany = append(m.ManyToMany, acc)
		}
	}

	return m
}

func (i *Inspector) field(f *schema.Field) *source.Field {
	kind, base := classify(f)

	field := &source.Field{
		Name:          f.DBName,
		Kind:          kind,
		PrimaryKey:    f.PrimaryKey,
		Unique:        f.Unique,
		Null:          nullable(f),
		MaxLength:     f.Size,
		MaxDigits:     f.Precision,
		DecimalPlaces: f.Scale,
		Settings:      f.TagSettings,
	}
	if f.GORMDataType != schema.String {
		field.MaxLength = 0
	}
	if base != "" {
		field.Base = &source.Field{Name: f.DBName, Kind: base}
	}
	if f.DefaultValue != "" && !f.AutoIncrement {
		if f.DefaultValueInterface != nil {
			field.Default = &source.Default{Value: f.DefaultValueInterface}
		} else {
			field.Default = &source.Default{Expression: f.DefaultValue}
		}
	}
	return field
}

// belongsTo turns the foreign-key column of a belongs-to relation into a
// ForeignKey (OneToOneField when unique) field
func (i *Inspector) belongsTo(m *source.Model, s *schema.Schema, rel *schema.Relationship, byColumn map[string]*source.Field) {
	if len(rel.References) != 1 {
		i.logger.Warn("composite belongs-to relation left as plain columns",
			zap.String("model", m.ID),
			zap.String("relation", rel.Name))
		return
	}
	ref := rel.References[0]
	field, ok := byColumn[ref.ForeignKey.DBName]
	if !ok {
		return
	}

	target := i.fromSchema(rel.FieldSchema)
	targetField := target.Field(ref.PrimaryKey.DBName)

	field.Kind = source.KindForeignKey
	if field.Unique {
		field.Kind = source.KindOneToOneField
	}
	field.Column = ref.ForeignKey.DBName
	field.Name = strs.ToSnakeCase(rel.Name)
	field.Base = nil
	field.Relation = &source.Relation{
		Target:      target,
		TargetField: targetField,
		OnDelete:    onDelete(rel),
		RelatedName: relatedName(s, rel),
	}
}

// many2many builds the accessor of a many2many relation and its junction
// model
func (i *Inspector) many2many(m *source.Model, rel *schema.Relationship) *source.ManyToMany {
	_, reverse := rel.Field.TagSettings[SettingReverse]
	target := i.fromSchema(rel.FieldSchema)

	acc := &source.ManyToMany{
		Name:        strs.ToSnakeCase(rel.Name),
		Target:      target,
		RelatedName: rel.Field.TagSettings[SettingBackRef],
		Reverse:     reverse,
	}
	if rel.JoinTable == nil || reverse {
		return acc
	}

	for _, ref := range rel.References {
		if ref.PrimaryKey == nil || ref.ForeignKey == nil {
			continue
		}
		if ref.OwnPrimaryKey {
			acc.LocalKey = ref.PrimaryKey.DBName
			acc.ThroughLocal = ref.ForeignKey.DBName
		} else {
			acc.RemoteKey = ref.PrimaryKey.DBName
			acc.ThroughRemote = ref.ForeignKey.DBName
		}
	}
	acc.Through = i.through(m, target, rel)
	return acc
}

// through builds the junction model of a many2many relation. Both sides of
// a relation share one junction model per join table.
func (i *Inspector) through(owner, target *source.Model, rel *schema.Relationship) *source.Model {
	jt := rel.JoinTable
	if t, ok := i.throughs[jt.Table]; ok {
		return t
	}

	t := &source.Model{
		ID:     owner.ID + "." + jt.Name,
		Name:   strs.ToPascalCase(jt.Name),
		Module: owner.Module,
		Table:  jt.Table,
	}
	i.throughs[jt.Table] = t

	refs := make(map[string]*schema.Reference, len(rel.References))
	for _, ref := range rel.References {
		if ref.ForeignKey != nil {
			refs[ref.ForeignKey.DBName] = ref
		}
	}

	for _, f := range jt.Fields {
		if f.DBName == "" {
			continue
		}
		ref, ok := refs[f.DBName]
		if !ok || ref.PrimaryKey == nil {
			t.Fields = append(t.Fields, i.field(f))
			continue
		}

		related := target
		if ref.OwnPrimaryKey {
			related = owner
		}
		t.Fields = append(t.Fields, &source.Field{
			Name:       strings.TrimSuffix(f.DBName, "_"+ref.PrimaryKey.DBName),
			Column:     f.DBName,
			Kind:       source.KindForeignKey,
			PrimaryKey: f.PrimaryKey,
			Relation: &source.Relation{
				Target:      related,
				TargetField: related.Field(ref.PrimaryKey.DBName),
				OnDelete:    DefaultOnDelete,
				RelatedName: "+",
			},
		})
	}
	return t
}

// onDelete reads the ON DELETE action of a constraint tag
// (constraint:OnUpdate:CASCADE,OnDelete:SET NULL)
func onDelete(rel *schema.Relationship) string {
	tag := rel.Field.TagSettings["CONSTRAINT"]
	if tag == "" || tag == "-" {
		return DefaultOnDelete
	}
	settings := schema.ParseTagSetting(tag, ",")
	if action := strings.TrimSpace(settings["ONDELETE"]); action != "" {
		return strings.ToUpper(action)
	}
	return DefaultOnDelete
}

// relatedName is the backref tag, the has-one/has-many field of the target
// pointing back at the owner, or the snake-cased owner name
func relatedName(owner *schema.Schema, rel *schema.Relationship) string {
	if name := rel.Field.TagSettings[SettingBackRef]; name != "" {
		return name
	}
	if rel.FieldSchema != nil {
		back := append(append([]*schema.Relationship{}, rel.FieldSchema.Relationships.HasMany...),
			rel.FieldSchema.Relationships.HasOne...)
		for _, r := range back {
			if r.FieldSchema != nil && r.FieldSchema.ModelType == owner.ModelType && len(r.References) == 1 &&
				r.References[0].ForeignKey.DBName == rel.References[0].ForeignKey.DBName {
				return strs.ToSnakeCase(r.Name)
			}
		}
	}
	return strs.ToSnakeCase(owner.Name)
}
