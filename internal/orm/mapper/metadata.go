package mapper

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrUnresolvedRelationTarget is returned when a relationship references a
// table that was never declared
var ErrUnresolvedRelationTarget = errors.New("unresolved relation target")

// Metadata is the registry of declared tables. Relationship targets are
// table names and are only resolved by Configure, so tables can be added in
// any order.
type Metadata struct {
	tables map[string]*Table
	order  []string
	logger *zap.Logger
	mu     sync.RWMutex
}

// NewMetadata creates an empty registry
func NewMetadata(logger *zap.Logger) *Metadata {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Metadata{
		tables: make(map[string]*Table),
		logger: logger,
	}
}

// Add registers a table
func (m *Metadata) Add(t *Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tables[t.Name]; exists {
		return fmt.Errorf("table %s is already declared", t.Name)
	}
	m.tables[t.Name] = t
	m.order = append(m.order, t.Name)
	return nil
}

// Table returns a declared table by name
func (m *Metadata) Table(name string) (*Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[name]
	return t, ok
}

// Tables returns all declared tables in declaration order
func (m *Metadata) Tables() []*Table {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tables := make([]*Table, 0, len(m.order))
	for _, name := range m.order {
		tables = append(tables, m.tables[name])
	}
	return tables
}

// Len returns the number of declared tables
func (m *Metadata) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.tables)
}

// Remove drops a table. Relationships on other tables that target it are
// left in place and reported by the next Configure if still unconfigured.
func (m *Metadata) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tables[name]; !exists {
		return
	}
	delete(m.tables, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Clear removes all tables (useful for testing)
func (m *Metadata) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tables = make(map[string]*Table)
	m.order = nil
}

// Configure resolves relationship targets and installs reverse
// relationships requested through BackRef or BackPopulates. Relationships
// whose target is missing are removed from their table and reported;
// the remaining relationships are still configured. Configure can be called
// again after more tables were added.
func (m *Metadata) Configure() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs error
	for _, name := range m.order {
		t := m.tables[name]
		for _, r := range t.Relationships() {
			if r.configured {
				continue
			}

			target, ok := m.tables[r.Target]
			if !ok {
				m.logger.Warn("omitting relationship with unresolved target",
					zap.String("table", t.Name),
					zap.String("relationship", r.Name),
					zap.String("target", r.Target))
				t.removeRelationship(r.Name)
				errs = multierr.Append(errs,
					fmt.Errorf("%w: %s.%s -> %s", ErrUnresolvedRelationTarget, t.Name, r.Name, r.Target))
				continue
			}

			t.resolve(r, target)
			if !r.Reverse {
				m.installReverse(r, target)
			}
		}
	}
	return errs
}

// installReverse adds the reciprocal of r on its target table
func (m *Metadata) installReverse(r *Relationship, target *Table) {
	name := r.BackRef
	if name == "" {
		name = r.BackPopulates
	}
	if name == "" {
		return
	}

	if existing := target.Relationship(name); existing != nil {
		if r.BackPopulates != "" && existing.Target == r.Parent.Name {
			existing.BackPopulates = r.Name
			return
		}
		m.logger.Warn("reverse relationship name already in use",
			zap.String("table", target.Name),
			zap.String("relationship", name))
		return
	}

	reverse := &Relationship{
		Name:        name,
		Target:      r.Parent.Name,
		Secondary:   r.Secondary,
		ForeignKeys: r.ForeignKeys,
		UseList:     true,
		Reverse:     true,
		resolved:    r.Parent,
		configured:  true,
	}
	if r.Secondary != nil {
		reverse.PrimaryJoin = r.SecondaryJoin
		reverse.SecondaryJoin = r.PrimaryJoin
	} else if !r.UseList && r.oneToOne() {
		reverse.UseList = false
	}
	if r.BackPopulates != "" {
		reverse.BackPopulates = r.Name
	}

	if err := target.AddRelationship(reverse); err != nil {
		m.logger.Warn("cannot install reverse relationship",
			zap.String("table", target.Name),
			zap.String("relationship", name),
			zap.Error(err))
	}
}

// oneToOne reports whether every local foreign key column is unique
func (r *Relationship) oneToOne() bool {
	if len(r.ForeignKeys) == 0 {
		return false
	}
	for _, c := range r.ForeignKeys {
		if !c.Unique && !c.PrimaryKey {
			return false
		}
	}
	return true
}
