package source

import (
	"sort"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Module is a named set of models, the unit bulk transfer works on
type Module struct {
	Name string

	members map[string]*Model
	mu      sync.RWMutex
}

// NewModule creates an empty module
func NewModule(name string) *Module {
	return &Module{
		Name:    name,
		members: make(map[string]*Model),
	}
}

// Add binds a model under a member name. Models without a module name
// inherit the module's.
func (m *Module) Add(name string, model *Model) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if model.Module == "" {
		model.Module = m.Name
	}
	m.members[name] = model
}

// Get returns the model bound to a member name
func (m *Module) Get(name string) (*Model, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	model, ok := m.members[name]
	return model, ok
}

// Names returns member names in sorted order
func (m *Module) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.members))
	for name := range m.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Models returns the public, non-abstract models in member-name order
func (m *Module) Models() []*Model {
	names := m.Names()

	m.mu.RLock()
	defer m.mu.RUnlock()

	models := make([]*Model, 0, len(names))
	for _, name := range names {
		model := m.members[name]
		if !IsPublic(name) || model.Abstract {
			continue
		}
		models = append(models, model)
	}
	return models
}

// Len returns the number of members
func (m *Module) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.members)
}

// IsPublic reports whether a member name is exported
func IsPublic(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return r != utf8.RuneError && unicode.IsUpper(r)
}
