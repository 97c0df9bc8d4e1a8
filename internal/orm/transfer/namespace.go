// Package transfer declares every model of a source module and publishes
// the resulting tables into a namespace, and autoloads such namespaces for
// all registered applications.
package transfer

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/conduit-lang/schemabridge/internal/orm/mapper"
	strs "github.com/conduit-lang/schemabridge/internal/util/strings"
)

// Namespace is a published set of tables keyed by formatted model name
type Namespace struct {
	name   string
	tables map[string]*mapper.Table
	mu     sync.RWMutex
}

// NewNamespace creates an empty namespace
func NewNamespace(name string) *Namespace {
	return &Namespace{
		name:   name,
		tables: make(map[string]*mapper.Table),
	}
}

// Name returns the namespace name
func (n *Namespace) Name() string {
	return n.name
}

// Set publishes a table under a name, replacing any previous one
func (n *Namespace) Set(name string, table *mapper.Table) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.tables[name] = table
}

// Get returns a published table
func (n *Namespace) Get(name string) (*mapper.Table, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	t, ok := n.tables[name]
	return t, ok
}

// Names returns the published names in sorted order
func (n *Namespace) Names() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	names := make([]string, 0, len(n.tables))
	for name := range n.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of published tables
func (n *Namespace) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return len(n.tables)
}

// NameFormatter converts a model name to its published name
type NameFormatter func(string) string

// Built-in formatters
var (
	CamelCase NameFormatter = strs.ToCamelCase
	SnakeCase NameFormatter = strs.ToSnakeCase
	Identity  NameFormatter = func(s string) string { return s }
)

// ParseNameFormatter returns the formatter named camel, snake or identity.
// An empty name selects camel.
func ParseNameFormatter(name string) (NameFormatter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "camel", "camelcase":
		return CamelCase, nil
	case "snake", "snake_case":
		return SnakeCase, nil
	case "identity", "none":
		return Identity, nil
	default:
		return nil, fmt.Errorf("unknown name format: %s", name)
	}
}
