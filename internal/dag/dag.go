// Package dag provides a dependency graph over variable bindings.
// It supports reference discovery, cycle detection and topological ordering.
package dag

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Node is one binding in the graph.
type Node struct {
	// Name is the bound variable name
	Name string
	// Expr is the expression bound to Name
	Expr string
}

// Graph is a directed graph of bindings. An edge runs from a dependency to the
// binding whose expression references it.
type Graph struct {
	nodes   map[string]*Node
	edges   map[string][]string // dependency -> dependents
	parents map[string][]string // dependent -> dependencies
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

var identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// FromBindings builds the graph of bindings, adding an edge wherever an
// expression mentions another bound name as a whole identifier.
func FromBindings(bindings map[string]string) *Graph {
	g := NewGraph()
	for name, expr := range bindings {
		g.AddNode(name, expr)
	}
	for name, expr := range bindings {
		for _, ref := range References(expr, bindings) {
			if ref != name {
				_ = g.AddEdge(ref, name)
			}
		}
	}
	return g
}

// References returns the names of bindings mentioned in expr, sorted.
func References(expr string, bindings map[string]string) []string {
	seen := make(map[string]bool)
	for _, word := range identPattern.FindAllString(expr, -1) {
		if _, ok := bindings[word]; ok {
			seen[word] = true
		}
	}
	refs := make([]string, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// AddNode adds a binding to the graph, replacing the expression of an
// existing one.
func (g *Graph) AddNode(name, expr string) {
	if n, exists := g.nodes[name]; exists {
		n.Expr = expr
		return
	}
	g.nodes[name] = &Node{Name: name, Expr: expr}
	g.edges[name] = []string{}
	g.parents[name] = []string{}
}

// AddEdge records that dependent references dependency.
func (g *Graph) AddEdge(dependency, dependent string) error {
	if _, exists := g.nodes[dependency]; !exists {
		return fmt.Errorf("binding %q does not exist", dependency)
	}
	if _, exists := g.nodes[dependent]; !exists {
		return fmt.Errorf("binding %q does not exist", dependent)
	}
	if dependency == dependent {
		return fmt.Errorf("self-reference detected: %s", dependency)
	}

	if !contains(g.edges[dependency], dependent) {
		g.edges[dependency] = append(g.edges[dependency], dependent)
	}
	if !contains(g.parents[dependent], dependency) {
		g.parents[dependent] = append(g.parents[dependent], dependency)
	}
	return nil
}

// GetNode returns a binding by name.
func (g *Graph) GetNode(name string) (*Node, bool) {
	node, exists := g.nodes[name]
	return node, exists
}

// Dependencies returns the bindings referenced by name, sorted.
func (g *Graph) Dependencies(name string) []string {
	return sorted(g.parents[name])
}

// Dependents returns the bindings that reference name, sorted.
func (g *Graph) Dependents(name string) []string {
	return sorted(g.edges[name])
}

// NodeCount returns the number of bindings.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of references.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// HasCycle reports whether the bindings reference each other in a cycle,
// along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.Dependents(id) {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.names() {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// TopologicalSort returns the bindings with dependencies before dependents.
// Independent bindings keep name order. Returns an error on a cycle.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %s", strings.Join(cyclePath, " -> "))
	}

	visited := make(map[string]bool)
	var result []*Node

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true

		for _, parentID := range g.Dependencies(id) {
			visit(parentID)
		}

		result = append(result, g.nodes[id])
	}

	for _, id := range g.names() {
		visit(id)
	}

	return result, nil
}

// GetAffectedNodes returns the changed bindings and everything that
// transitively references them, sorted.
func (g *Graph) GetAffectedNodes(changed []string) []string {
	affected := make(map[string]bool)

	var markAffected func(id string)
	markAffected = func(id string) {
		if affected[id] {
			return
		}
		affected[id] = true
		for _, childID := range g.edges[id] {
			markAffected(childID)
		}
	}

	for _, id := range changed {
		if _, exists := g.nodes[id]; exists {
			markAffected(id)
		}
	}

	result := make([]string, 0, len(affected))
	for id := range affected {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}

// Cascade returns names together with the bindings that transitively
// reference them, sorted. Names unknown to the graph are kept as given.
func (g *Graph) Cascade(names []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, name := range append(append([]string{}, names...), g.GetAffectedNodes(names)...) {
		if !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}

func (g *Graph) names() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
