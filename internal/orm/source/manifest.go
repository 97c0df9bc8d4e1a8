package source

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is a YAML rendition of the introspection surface, used when the
// source models are not Go types (e.g. the CLI).
type Manifest struct {
	Modules []ManifestModule `yaml:"modules"`
}

// ManifestModule is one module of a manifest
type ManifestModule struct {
	Name   string          `yaml:"name"`
	Models []ManifestModel `yaml:"models"`
}

// ManifestModel is one model of a manifest
type ManifestModel struct {
	Name       string               `yaml:"name"`
	Table      string               `yaml:"table"`
	Abstract   bool                 `yaml:"abstract"`
	Fields     []ManifestField      `yaml:"fields"`
	ManyToMany []ManifestManyToMany `yaml:"many_to_many"`
}

// ManifestField is one field of a manifest model
type ManifestField struct {
	Name          string            `yaml:"name"`
	Column        string            `yaml:"column"`
	Kind          string            `yaml:"kind"`
	PrimaryKey    bool              `yaml:"primary_key"`
	Unique        bool              `yaml:"unique"`
	Null          bool              `yaml:"null"`
	Default       *ManifestDefault  `yaml:"default"`
	MaxLength     int               `yaml:"max_length"`
	MaxDigits     int               `yaml:"max_digits"`
	DecimalPlaces int               `yaml:"decimal_places"`
	Base          *ManifestField    `yaml:"base"`
	Settings      map[string]string `yaml:"settings"`
	Relation      *ManifestRelation `yaml:"relation"`
}

// ManifestDefault is an explicit default
type ManifestDefault struct {
	Value      interface{} `yaml:"value"`
	Expression string      `yaml:"expression"`
}

// ManifestRelation is the target of a to-one relation
type ManifestRelation struct {
	Target      string `yaml:"target"`
	Field       string `yaml:"field"`
	OnDelete    string `yaml:"on_delete"`
	RelatedName string `yaml:"related_name"`
}

// ManifestManyToMany is a many-to-many accessor
type ManifestManyToMany struct {
	Name          string `yaml:"name"`
	Target        string `yaml:"target"`
	Through       string `yaml:"through"`
	LocalKey      string `yaml:"local_key"`
	ThroughLocal  string `yaml:"through_local"`
	RemoteKey     string `yaml:"remote_key"`
	ThroughRemote string `yaml:"through_remote"`
	RelatedName   string `yaml:"related_name"`
	Reverse       bool   `yaml:"reverse"`
}

// LoadManifest reads and resolves a manifest file
func LoadManifest(path string) ([]*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses a manifest and resolves relation targets. Targets
// are referenced as "Model" (same module first, then any module) or
// "module.Model". Targets that cannot be found are left nil.
func ParseManifest(data []byte) ([]*Module, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	b := &manifestBuilder{
		byQualified: make(map[string]*Model),
		byName:      make(map[string][]*Model),
	}

	modules := make([]*Module, 0, len(manifest.Modules))
	for _, mm := range manifest.Modules {
		if mm.Name == "" {
			return nil, fmt.Errorf("manifest module without a name")
		}
		module := NewModule(mm.Name)
		for _, decl := range mm.Models {
			model, err := b.model(mm.Name, decl)
			if err != nil {
				return nil, err
			}
			module.Add(decl.Name, model)
		}
		modules = append(modules, module)
	}

	for _, mm := range manifest.Modules {
		for _, decl := range mm.Models {
			if err := b.link(mm.Name, decl); err != nil {
				return nil, err
			}
		}
	}

	return modules, nil
}

type manifestBuilder struct {
	byQualified map[string]*Model
	byName      map[string][]*Model
}

func (b *manifestBuilder) model(module string, decl ManifestModel) (*Model, error) {
	if decl.Name == "" {
		return nil, fmt.Errorf("module %s: model without a name", module)
	}
	qualified := module + "." + decl.Name
	if _, exists := b.byQualified[qualified]; exists {
		return nil, fmt.Errorf("model %s is declared twice", qualified)
	}

	table := decl.Table
	if table == "" {
		table = module + "_" + strings.ToLower(decl.Name)
	}

	model := &Model{
		ID:       qualified,
		Name:     decl.Name,
		Module:   module,
		Table:    table,
		Abstract: decl.Abstract,
	}
	for _, fs := range decl.Fields {
		field, err := manifestField(fs)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", qualified, err)
		}
		model.Fields = append(model.Fields, field)
	}

	b.byQualified[qualified] = model
	b.byName[decl.Name] = append(b.byName[decl.Name], model)
	return model, nil
}

func manifestField(fs ManifestField) (*Field, error) {
	if fs.Name == "" {
		return nil, fmt.Errorf("field without a name")
	}
	if fs.Kind == "" {
		return nil, fmt.Errorf("field %s has no kind", fs.Name)
	}

	field := &Field{
		Name:          fs.Name,
		Column:        fs.Column,
		Kind:          Kind(fs.Kind),
		PrimaryKey:    fs.PrimaryKey,
		Unique:        fs.Unique,
		Null:          fs.Null,
		MaxLength:     fs.MaxLength,
		MaxDigits:     fs.MaxDigits,
		DecimalPlaces: fs.DecimalPlaces,
		Settings:      fs.Settings,
	}
	if fs.Default != nil {
		field.Default = &Default{Value: fs.Default.Value, Expression: fs.Default.Expression}
	}
	if fs.Base != nil {
		base, err := manifestField(*fs.Base)
		if err != nil {
			return nil, fmt.Errorf("field %s base: %w", fs.Name, err)
		}
		field.Base = base
	}
	return field, nil
}

func (b *manifestBuilder) lookup(module, ref string) *Model {
	if ref == "" {
		return nil
	}
	if strings.Contains(ref, ".") {
		return b.byQualified[ref]
	}
	if m, ok := b.byQualified[module+"."+ref]; ok {
		return m
	}
	if candidates := b.byName[ref]; len(candidates) == 1 {
		return candidates[0]
	}
	return nil
}

func (b *manifestBuilder) link(module string, decl ManifestModel) error {
	model := b.byQualified[module+"."+decl.Name]

	for i, fs := range decl.Fields {
		if fs.Relation == nil {
			continue
		}
		field := model.Fields[i]
		rel := &Relation{
			Target:      b.lookup(module, fs.Relation.Target),
			OnDelete:    fs.Relation.OnDelete,
			RelatedName: fs.Relation.RelatedName,
		}
		if rel.Target != nil {
			if fs.Relation.Field != "" {
				rel.TargetField = rel.Target.Field(fs.Relation.Field)
			} else if pk, err := rel.Target.PrimaryKey(); err == nil {
				rel.TargetField = pk
			}
		}
		field.Relation = rel
	}

	for _, ms := range decl.ManyToMany {
		if ms.Name == "" {
			return fmt.Errorf("model %s: many-to-many accessor without a name", model)
		}
		model.ManyToMany = append(model.ManyToMany, &ManyToMany{
			Name:          ms.Name,
			Target:        b.lookup(module, ms.Target),
			Through:       b.lookup(module, ms.Through),
			LocalKey:      ms.LocalKey,
			ThroughLocal:  ms.ThroughLocal,
			RemoteKey:     ms.RemoteKey,
			ThroughRemote: ms.ThroughRemote,
			RelatedName:   ms.RelatedName,
			Reverse:       ms.Reverse,
		})
	}
	return nil
}
