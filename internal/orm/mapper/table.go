// Package mapper is the target side of schemabridge: a small declarative
// mapper that holds tables, columns and relationships, resolves
// relationship targets lazily through Metadata and renders dialect DDL.
package mapper

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultValue is a column default
type DefaultValue struct {
	Value      interface{}
	Expression string
}

// ForeignKey references another table's column as "table.column"
type ForeignKey struct {
	Column   string
	OnDelete string
}

// TargetTable returns the referenced table name
func (fk *ForeignKey) TargetTable() string {
	table, _, _ := strings.Cut(fk.Column, ".")
	return table
}

// TargetColumn returns the referenced column name
func (fk *ForeignKey) TargetColumn() string {
	_, column, _ := strings.Cut(fk.Column, ".")
	return column
}

// Column is a declared column
type Column struct {
	Name          string
	Type          ColumnType
	PrimaryKey    bool
	Unique        bool
	Nullable      bool
	AutoIncrement bool
	Default       *DefaultValue
	ForeignKey    *ForeignKey

	// Table is set when the column is added to a table
	Table *Table
}

// Ref returns a reference to this column
func (c *Column) Ref() ColumnRef {
	table := ""
	if c.Table != nil {
		table = c.Table.Name
	}
	return ColumnRef{Table: table, Column: c.Name}
}

// ColumnRef names a column of a (possibly not yet declared) table
type ColumnRef struct {
	Table  string
	Column string
}

// String returns "table.column"
func (r ColumnRef) String() string {
	return r.Table + "." + r.Column
}

// JoinCondition is an equality predicate between two columns
type JoinCondition struct {
	Left  ColumnRef
	Right ColumnRef
}

// String renders the predicate
func (j *JoinCondition) String() string {
	return j.Left.String() + " = " + j.Right.String()
}

// Relationship is a declared relationship attribute
type Relationship struct {
	Name string

	// Target is the target table name, resolved by Metadata.Configure
	Target string

	// Secondary is the junction table of a many-to-many relationship
	Secondary     *Table
	PrimaryJoin   *JoinCondition
	SecondaryJoin *JoinCondition

	// ForeignKeys are the local columns the relationship is built on
	ForeignKeys []*Column

	// UseList is false for scalar (to-one) relationships
	UseList bool

	// BackRef asks Configure to install a reverse relationship of this name
	BackRef string
	// BackPopulates names an explicit reciprocal relationship
	BackPopulates string

	// Reverse marks relationships installed by Configure
	Reverse bool

	// Parent is set when the relationship is added to a table
	Parent *Table

	resolved   *Table
	configured bool
}

// Resolved returns the target table after Configure, nil before
func (r *Relationship) Resolved() *Table {
	if r.Parent != nil {
		r.Parent.mu.RLock()
		defer r.Parent.mu.RUnlock()
	}
	return r.resolved
}

// Table is a declared (mapped) table
type Table struct {
	Name      string
	ClassName string

	// SourceID and Module identify the source model the table was declared from
	SourceID string
	Module   string

	columns     []*Column
	columnIndex map[string]*Column

	// mu guards the relationships, which Metadata.Configure keeps editing
	// after the table is published. Columns are only added before that.
	mu            sync.RWMutex
	relationships []*Relationship
	relIndex      map[string]*Relationship
}

// NewTable creates an empty table
func NewTable(name string) *Table {
	return &Table{
		Name:        name,
		ClassName:   name,
		columnIndex: make(map[string]*Column),
		relIndex:    make(map[string]*Relationship),
	}
}

// AddColumn appends a column
func (t *Table) AddColumn(c *Column) error {
	if c == nil {
		return fmt.Errorf("column cannot be nil")
	}
	if _, exists := t.columnIndex[c.Name]; exists {
		return fmt.Errorf("table %s already has a column %s", t.Name, c.Name)
	}
	c.Table = t
	t.columns = append(t.columns, c)
	t.columnIndex[c.Name] = c
	return nil
}

// AddRelationship appends a relationship
func (t *Table) AddRelationship(r *Relationship) error {
	if r == nil {
		return fmt.Errorf("relationship cannot be nil")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.relIndex[r.Name]; exists {
		return fmt.Errorf("table %s already has a relationship %s", t.Name, r.Name)
	}
	if _, exists := t.columnIndex[r.Name]; exists {
		return fmt.Errorf("relationship %s clashes with a column of table %s", r.Name, t.Name)
	}
	r.Parent = t
	t.relationships = append(t.relationships, r)
	t.relIndex[r.Name] = r
	return nil
}

// removeRelationship drops a relationship by name
func (t *Table) removeRelationship(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.relIndex[name]; !exists {
		return
	}
	delete(t.relIndex, name)
	kept := t.relationships[:0]
	for _, r := range t.relationships {
		if r.Name != name {
			kept = append(kept, r)
		}
	}
	t.relationships = kept
}

// resolve marks a relationship of the table as configured against target
func (t *Table) resolve(r *Relationship, target *Table) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r.resolved = target
	r.configured = true
}

// Column returns a column by name, nil if absent
func (t *Table) Column(name string) *Column {
	return t.columnIndex[name]
}

// C returns a reference to a column by name
func (t *Table) C(name string) (ColumnRef, error) {
	if _, ok := t.columnIndex[name]; !ok {
		return ColumnRef{}, fmt.Errorf("table %s has no column %s", t.Name, name)
	}
	return ColumnRef{Table: t.Name, Column: name}, nil
}

// Columns returns the columns in declaration order
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Relationship returns a relationship by name, nil if absent
func (t *Table) Relationship(name string) *Relationship {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.relIndex[name]
}

// Relationships returns the relationships in declaration order
func (t *Table) Relationships() []*Relationship {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Relationship, len(t.relationships))
	copy(out, t.relationships)
	return out
}

// PrimaryKey returns the primary key columns
func (t *Table) PrimaryKey() []*Column {
	var pk []*Column
	for _, c := range t.columns {
		if c.PrimaryKey {
			pk = append(pk, c)
		}
	}
	return pk
}

// ForeignKeyColumns returns the columns carrying a foreign key
func (t *Table) ForeignKeyColumns() []*Column {
	var fks []*Column
	for _, c := range t.columns {
		if c.ForeignKey != nil {
			fks = append(fks, c)
		}
	}
	return fks
}
