// Package graph implements the pure, in-memory dependency model over a
// loaded migration set: cycle/dangling-dependency validation, and the
// ancestor/descendant ordering queries the coordinator drives its plans
// from. Grounded on the pack's DAG implementations (three-color DFS cycle
// detection, lexicographic tie-break for determinism) generalized from a
// single global graph into a type built fresh per invocation from a
// schema.Set.
package graph

import (
	"sort"

	"github.com/herenow/schemadag/internal/schema"
)

// Graph is the immutable dependency DAG derived from a schema.Set. Nodes
// are migration ids; a directed edge X -> Y means X depends on Y (Y must
// be applied first).
type Graph struct {
	nodes   []string            // all node ids, sorted
	forward map[string][]string // forward[x] = ids x depends on, sorted
	reverse map[string][]string // reverse[y] = ids that depend on y, sorted
}

// Build validates ms (no cycles, no dangling dependencies) and returns the
// derived Graph. The bootstrap migration is implicitly present as a node
// even though it is never loaded from the store.
func Build(ms schema.Set) (*Graph, error) {
	forward := make(map[string][]string, len(ms)+1)
	reverse := make(map[string][]string, len(ms)+1)

	nodeSet := make(map[string]bool, len(ms)+1)
	nodeSet[schema.BootstrapID] = true
	for id := range ms {
		nodeSet[id] = true
	}

	for id := range nodeSet {
		forward[id] = nil
		reverse[id] = nil
	}

	for id, m := range ms {
		deps := append([]string(nil), m.Depends...)
		if !containsStr(deps, schema.BootstrapID) {
			deps = append(deps, schema.BootstrapID)
		}
		sort.Strings(deps)
		for _, dep := range deps {
			if !nodeSet[dep] {
				return nil, schema.NewUnresolvedDependencyError(id, dep)
			}
			forward[id] = append(forward[id], dep)
			reverse[dep] = append(reverse[dep], id)
		}
	}

	for id := range reverse {
		sort.Strings(reverse[id])
	}

	nodes := make([]string, 0, len(nodeSet))
	for id := range nodeSet {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)

	g := &Graph{nodes: nodes, forward: forward, reverse: reverse}
	if cycle := g.findCycle(); cycle != nil {
		return nil, schema.NewCycleError(cycle)
	}
	return g, nil
}

// Nodes returns every migration id in the graph, in lexicographic order,
// including the implicit bootstrap node.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Roots returns the non-bootstrap nodes whose only dependency is the
// bootstrap migration itself — used for diagnostic display only.
func (g *Graph) Roots() []string {
	var roots []string
	for _, id := range g.nodes {
		if id == schema.BootstrapID {
			continue
		}
		deps := g.forward[id]
		if len(deps) == 1 && deps[0] == schema.BootstrapID {
			roots = append(roots, id)
		}
	}
	return roots
}

// Has reports whether id is a node in the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.forward[id]
	return ok
}

// Ancestors returns every id the named migration transitively depends on,
// in a deterministic topological order (ties broken lexicographically).
// The named migration itself is not included.
func (g *Graph) Ancestors(id string) ([]string, error) {
	if !g.Has(id) {
		return nil, schema.NewNotFoundError(id)
	}
	visited := map[string]bool{id: true}
	var order []string

	var visit func(string)
	visit = func(cur string) {
		deps := append([]string(nil), g.forward[cur]...)
		sort.Strings(deps)
		for _, dep := range deps {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			visit(dep)
			order = append(order, dep)
		}
	}
	visit(id)
	return order, nil
}

// Descendants returns every id that transitively depends on the named
// migration, ordered so that leaves (most-dependent) come first — the
// correct revert order. The named migration itself is not included.
func (g *Graph) Descendants(id string) ([]string, error) {
	if !g.Has(id) {
		return nil, schema.NewNotFoundError(id)
	}
	visited := map[string]bool{id: true}
	var order []string

	var visit func(string)
	visit = func(cur string) {
		dependents := append([]string(nil), g.reverse[cur]...)
		sort.Strings(dependents)
		for _, dep := range dependents {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			visit(dep)
			order = append(order, dep)
		}
	}
	visit(id)
	return order, nil
}

// TopologicalOrder returns all nodes in the graph restricted to ids, in an
// order where every id's dependencies (also present in ids) precede it.
// Ties are broken lexicographically. ids need not be the full node set;
// dependencies outside ids are treated as already satisfied.
func (g *Graph) TopologicalOrder(ids []string) []string {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	visited := make(map[string]bool, len(ids))
	var order []string

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	var visit func(string)
	visit = func(cur string) {
		if visited[cur] {
			return
		}
		visited[cur] = true
		deps := append([]string(nil), g.forward[cur]...)
		sort.Strings(deps)
		for _, dep := range deps {
			if want[dep] {
				visit(dep)
			}
		}
		order = append(order, cur)
	}
	for _, id := range sorted {
		visit(id)
	}
	return order
}

// findCycle runs a recursive three-color DFS over the graph and returns
// one offending cycle (beginning and ending at the same node), or nil if
// the graph is acyclic. It uses no explicit stack: recursion depth grows
// with the longest dependency chain.
func (g *Graph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.nodes))
	parent := make(map[string]string, len(g.nodes))

	var cycle []string
	var dfs func(string) bool
	dfs = func(node string) bool {
		color[node] = gray
		deps := append([]string(nil), g.forward[node]...)
		sort.Strings(deps)
		for _, dep := range deps {
			switch color[dep] {
			case gray:
				cycle = []string{dep}
				cur := node
				for cur != dep {
					cycle = append(cycle, cur)
					cur = parent[cur]
				}
				cycle = append(cycle, dep)
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return true
			case white:
				parent[dep] = node
				if dfs(dep) {
					return true
				}
			}
		}
		color[node] = black
		return false
	}

	for _, id := range g.nodes {
		if color[id] == white {
			if dfs(id) {
				return cycle
			}
		}
	}
	return nil
}

func containsStr(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
