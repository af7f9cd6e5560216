// Package graph resolves "depends on" edges between named nodes into a
// deterministic deployment order.
package graph

import (
	"fmt"
	"sort"
	"strings"
)

// CycleError reports a dependency cycle. Nodes lists the cycle in edge
// order, starting and ending at the same node.
type CycleError struct {
	Nodes []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Nodes, " -> "))
}

// Graph is a directed graph where an edge from A to B means A depends on B.
type Graph struct {
	nodes map[string]bool
	deps  map[string]map[string]bool
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: map[string]bool{},
		deps:  map[string]map[string]bool{},
	}
}

// AddNode registers name. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodes[name] {
		return
	}
	g.nodes[name] = true
	g.deps[name] = map[string]bool{}
}

// AddEdge records that from depends on to. Both nodes must exist.
func (g *Graph) AddEdge(from, to string) error {
	if !g.nodes[from] {
		return fmt.Errorf("unknown node %q", from)
	}
	if !g.nodes[to] {
		return fmt.Errorf("%s: depends on unknown node %q", from, to)
	}
	if from == to {
		return &CycleError{Nodes: []string{from, from}}
	}
	g.deps[from][to] = true
	return nil
}

// Has reports whether name is a node.
func (g *Graph) Has(name string) bool {
	return g.nodes[name]
}

// Dependencies returns the direct dependencies of name, sorted.
func (g *Graph) Dependencies(name string) []string {
	out := make([]string, 0, len(g.deps[name]))
	for d := range g.deps[name] {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Nodes returns every node, sorted.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Sort returns nodes with every dependency before its dependents. Among
// nodes that are ready at the same time, lexical order wins, so the
// result is stable for a given graph.
func (g *Graph) Sort() ([]string, error) {
	remaining := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for n := range g.nodes {
		remaining[n] = len(g.deps[n])
		for d := range g.deps[n] {
			dependents[d] = append(dependents[d], n)
		}
	}

	var ready []string
	for n, c := range remaining {
		if c == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		next := dependents[n]
		sort.Strings(next)
		for _, m := range next {
			remaining[m]--
			if remaining[m] == 0 {
				ready = insertSorted(ready, m)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, g.findCycle(remaining)
	}
	return order, nil
}

// Levels groups the sorted order into waves: every node in a wave only
// depends on nodes in earlier waves. An orchestrator may deploy a wave in
// parallel.
func (g *Graph) Levels() ([][]string, error) {
	order, err := g.Sort()
	if err != nil {
		return nil, err
	}
	depth := make(map[string]int, len(order))
	var levels [][]string
	for _, n := range order {
		d := 0
		for dep := range g.deps[n] {
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[n] = d
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], n)
	}
	return levels, nil
}

func insertSorted(s []string, v string) []string {
	i := sort.SearchStrings(s, v)
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// findCycle walks the unresolved part of the graph and returns one cycle.
func (g *Graph) findCycle(remaining map[string]int) *CycleError {
	var start string
	for _, n := range g.Nodes() {
		if remaining[n] > 0 {
			start = n
			break
		}
	}

	// Every unresolved node has at least one unresolved dependency, so
	// following the smallest one must revisit a node.
	seen := map[string]int{}
	var path []string
	cur := start
	for {
		if idx, ok := seen[cur]; ok {
			cycle := append([]string{}, path[idx:]...)
			cycle = append(cycle, cur)
			return &CycleError{Nodes: cycle}
		}
		seen[cur] = len(path)
		path = append(path, cur)

		next := ""
		for _, d := range g.Dependencies(cur) {
			if remaining[d] > 0 {
				next = d
				break
			}
		}
		if next == "" {
			return &CycleError{Nodes: path}
		}
		cur = next
	}
}
