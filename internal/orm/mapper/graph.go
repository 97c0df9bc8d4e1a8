package mapper

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCircularDependency is returned when foreign keys form a cycle
var ErrCircularDependency = errors.New("circular dependency")

// DependencyGraph is the foreign-key dependency graph between tables
type DependencyGraph struct {
	nodes []string
	edges map[string][]string // table -> referenced tables
}

// NewDependencyGraph builds the graph from foreign key columns. Self
// references and references to tables outside the set are ignored.
func NewDependencyGraph(tables []*Table) *DependencyGraph {
	graph := &DependencyGraph{
		edges: make(map[string][]string),
	}

	known := make(map[string]bool, len(tables))
	for _, t := range tables {
		known[t.Name] = true
		graph.nodes = append(graph.nodes, t.Name)
	}
	sort.Strings(graph.nodes)

	for _, t := range tables {
		seen := make(map[string]bool)
		for _, c := range t.ForeignKeyColumns() {
			target := c.ForeignKey.TargetTable()
			if target == t.Name || !known[target] || seen[target] {
				continue
			}
			seen[target] = true
			graph.edges[t.Name] = append(graph.edges[t.Name], target)
		}
		sort.Strings(graph.edges[t.Name])
	}

	return graph
}

// DetectCycles detects circular dependencies in the graph
func (g *DependencyGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	recursionStack := make(map[string]bool)

	var dfs func(node string, path []string)
	dfs = func(node string, path []string) {
		visited[node] = true
		recursionStack[node] = true
		path = append(path, node)

		for _, neighbor := range g.edges[node] {
			if !visited[neighbor] {
				dfs(neighbor, path)
			} else if recursionStack[neighbor] {
				for i, n := range path {
					if n == neighbor {
						cycle := make([]string, len(path)-i)
						copy(cycle, path[i:])
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}

		recursionStack[node] = false
	}

	for _, node := range g.nodes {
		if !visited[node] {
			dfs(node, nil)
		}
	}

	return cycles
}

// TopologicalSort returns table names with dependencies first. Ties are
// broken by name so the order is deterministic.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	outDegree := make(map[string]int, len(g.nodes))
	reverseEdges := make(map[string][]string)
	for _, node := range g.nodes {
		outDegree[node] = len(g.edges[node])
		for _, target := range g.edges[node] {
			reverseEdges[target] = append(reverseEdges[target], node)
		}
	}

	var queue []string
	for _, node := range g.nodes {
		if outDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		var ready []string
		for _, dependent := range reverseEdges[node] {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	if len(result) != len(g.nodes) {
		return nil, fmt.Errorf("%w:\n%s", ErrCircularDependency, formatCycles(g.DetectCycles()))
	}

	return result, nil
}

// formatCycles formats cycle information for error messages
func formatCycles(cycles [][]string) string {
	var b strings.Builder
	for i, cycle := range cycles {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("  Cycle %d: %s -> %s",
			i+1,
			strings.Join(cycle, " -> "),
			cycle[0]))
	}
	return b.String()
}

// Edge is a dependency of From on To
type Edge struct {
	From string
	To   string
}

// BreakCycles orders tables like TopologicalSort but never fails. When
// every remaining table waits on another, a table on a cycle is placed
// early and its edges to unplaced tables are returned as deferred.
func (g *DependencyGraph) BreakCycles() ([]string, []Edge) {
	outDegree := make(map[string]int, len(g.nodes))
	reverseEdges := make(map[string][]string)
	for _, node := range g.nodes {
		outDegree[node] = len(g.edges[node])
		for _, target := range g.edges[node] {
			reverseEdges[target] = append(reverseEdges[target], node)
		}
	}

	placed := make(map[string]bool, len(g.nodes))
	var queue []string
	for _, node := range g.nodes {
		if outDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	var deferred []Edge
	result := make([]string, 0, len(g.nodes))
	for len(result) < len(g.nodes) {
		if len(queue) == 0 {
			node := g.cycleMember(placed)
			for _, target := range g.edges[node] {
				if !placed[target] {
					deferred = append(deferred, Edge{From: node, To: target})
				}
			}
			queue = append(queue, node)
		}

		node := queue[0]
		queue = queue[1:]
		if placed[node] {
			continue
		}
		placed[node] = true
		result = append(result, node)

		var ready []string
		for _, dependent := range reverseEdges[node] {
			outDegree[dependent]--
			if outDegree[dependent] == 0 && !placed[dependent] {
				ready = append(ready, dependent)
			}
		}
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	return result, deferred
}

// cycleMember walks unplaced edges from the first unplaced table until a
// table repeats. Every unplaced table has an unplaced dependency when this
// is called, so the walk always ends on a cycle.
func (g *DependencyGraph) cycleMember(placed map[string]bool) string {
	var node string
	for _, n := range g.nodes {
		if !placed[n] {
			node = n
			break
		}
	}

	seen := make(map[string]bool)
	for !seen[node] {
		seen[node] = true
		for _, target := range g.edges[node] {
			if !placed[target] {
				node = target
				break
			}
		}
	}
	return node
}

// SortedTables returns the declared tables in creation order together with
// the foreign key columns that close a cycle. Those columns reference a
// table created later and must be constrained after every table exists.
func (m *Metadata) SortedTables() ([]*Table, []*Column) {
	tables := m.Tables()
	order, edges := NewDependencyGraph(tables).BreakCycles()

	byName := make(map[string]*Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}
	sorted := make([]*Table, 0, len(order))
	for _, name := range order {
		sorted = append(sorted, byName[name])
	}

	var deferred []*Column
	for _, e := range edges {
		for _, c := range byName[e.From].ForeignKeyColumns() {
			if c.ForeignKey.TargetTable() == e.To {
				deferred = append(deferred, c)
			}
		}
	}
	return sorted, deferred
}
