package mapper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fkTable(t *testing.T, name string, targets ...string) *Table {
	t.Helper()
	table := NewTable(name)
	require.NoError(t, table.AddColumn(&Column{Name: "id", Type: Integer{}, PrimaryKey: true}))
	for _, target := range targets {
		require.NoError(t, table.AddColumn(&Column{
			Name:       target + "_id",
			Type:       Integer{},
			ForeignKey: &ForeignKey{Column: target + ".id"},
		}))
	}
	return table
}

func TestDependencyGraph_TopologicalSort(t *testing.T) {
	tables := []*Table{
		fkTable(t, "comment", "post", "user"),
		fkTable(t, "post", "user"),
		fkTable(t, "user"),
		fkTable(t, "node", "node"),
		fkTable(t, "orphan", "missing"),
	}

	order, err := NewDependencyGraph(tables).TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"node", "orphan", "user", "post", "comment"}, order)
}

func TestDependencyGraph_Cycle(t *testing.T) {
	tables := []*Table{
		fkTable(t, "a", "b"),
		fkTable(t, "b", "a"),
	}

	graph := NewDependencyGraph(tables)
	cycles := graph.DetectCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b"}, cycles[0])

	_, err := graph.TopologicalSort()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircularDependency))
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestDependencyGraph_BreakCycles(t *testing.T) {
	tables := []*Table{
		fkTable(t, "employee", "department"),
		fkTable(t, "department", "employee"),
		fkTable(t, "badge", "employee"),
		fkTable(t, "site"),
	}

	order, deferred := NewDependencyGraph(tables).BreakCycles()
	assert.Equal(t, []string{"site", "employee", "badge", "department"}, order)
	assert.Equal(t, []Edge{{From: "employee", To: "department"}}, deferred, "badge only depends on the cycle")

	order, deferred = NewDependencyGraph(tables[2:]).BreakCycles()
	assert.Equal(t, []string{"badge", "site"}, order)
	assert.Empty(t, deferred)
}
