// Package dag holds the in-memory dependency graph used for bulk
// recomputation ordering. Keys are property-key strings; edges run
// from a dependency to the properties computed from it.
package dag

import (
	"fmt"
	"sort"
)

// Graph is a directed graph of property dependencies. It is not safe
// for concurrent use; callers build a graph per sweep and discard it.
type Graph struct {
	dependents   map[string][]string // dependency -> computed properties
	dependencies map[string][]string // computed property -> its inputs
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		dependents:   make(map[string][]string),
		dependencies: make(map[string][]string),
	}
}

// Add registers a property key. Adding an existing key is a no-op.
func (g *Graph) Add(key string) {
	if _, ok := g.dependents[key]; ok {
		return
	}
	g.dependents[key] = nil
	g.dependencies[key] = nil
}

// Has reports whether key is in the graph.
func (g *Graph) Has(key string) bool {
	_, ok := g.dependents[key]
	return ok
}

// Link records that dependent is computed from dependency. Both keys
// must already be in the graph. Duplicate links are ignored; a
// self-link is an error. Larger cycles are found by Cycle.
func (g *Graph) Link(dependency, dependent string) error {
	if !g.Has(dependency) {
		return fmt.Errorf("unknown dependency %q", dependency)
	}
	if !g.Has(dependent) {
		return fmt.Errorf("unknown dependent %q", dependent)
	}
	if dependency == dependent {
		return fmt.Errorf("property %s depends on itself", dependency)
	}
	for _, d := range g.dependents[dependency] {
		if d == dependent {
			return nil
		}
	}
	g.dependents[dependency] = append(g.dependents[dependency], dependent)
	g.dependencies[dependent] = append(g.dependencies[dependent], dependency)
	return nil
}

// Dependents returns the properties computed directly from key.
func (g *Graph) Dependents(key string) []string {
	return g.dependents[key]
}

// Dependencies returns the direct inputs of key.
func (g *Graph) Dependencies(key string) []string {
	return g.dependencies[key]
}

// Len returns the number of properties in the graph.
func (g *Graph) Len() int {
	return len(g.dependents)
}

// EdgeCount returns the number of dependency edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, deps := range g.dependents {
		n += len(deps)
	}
	return n
}

// Cycle returns a dependency cycle as a key path (first and last entry
// equal), or nil if the graph is acyclic. When several cycles exist
// the one found from the lexically smallest start key is returned.
func (g *Graph) Cycle() []string {
	const (
		unseen = iota
		onStack
		done
	)
	state := make(map[string]int, len(g.dependents))

	var stack []string
	var found []string

	var walk func(key string) bool
	walk = func(key string) bool {
		state[key] = onStack
		stack = append(stack, key)

		for _, dep := range g.dependents[key] {
			switch state[dep] {
			case unseen:
				if walk(dep) {
					return true
				}
			case onStack:
				// The cycle is the stack suffix starting at dep.
				for i, k := range stack {
					if k == dep {
						found = append(append(found, stack[i:]...), dep)
						return true
					}
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[key] = done
		return false
	}

	for _, key := range g.sortedKeys() {
		if state[key] == unseen && walk(key) {
			return found
		}
	}
	return nil
}

// TopologicalSort returns every key with dependencies before
// dependents, ties broken lexically. Returns an error naming the cycle
// path when the graph has one.
func (g *Graph) TopologicalSort() ([]string, error) {
	levels, err := g.ExecutionLevels()
	if err != nil {
		return nil, err
	}
	order := make([]string, 0, len(g.dependents))
	for _, level := range levels {
		order = append(order, level...)
	}
	return order, nil
}

// ExecutionLevels groups keys into recomputation waves: level 0 holds
// keys with no in-graph dependencies, and every key appears one level
// after the deepest of its dependencies. Keys in the same level can be
// recomputed concurrently. Each level is sorted.
func (g *Graph) ExecutionLevels() ([][]string, error) {
	indegree := make(map[string]int, len(g.dependents))
	for key, deps := range g.dependencies {
		indegree[key] = len(deps)
	}

	var ready []string
	for key, n := range indegree {
		if n == 0 {
			ready = append(ready, key)
		}
	}

	var levels [][]string
	placed := 0
	for len(ready) > 0 {
		sort.Strings(ready)
		levels = append(levels, ready)
		placed += len(ready)

		var next []string
		for _, key := range ready {
			for _, dep := range g.dependents[key] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		ready = next
	}

	if placed != len(g.dependents) {
		return nil, fmt.Errorf("cycle detected: %v", g.Cycle())
	}
	return levels, nil
}

// Downstream returns the given keys plus every property transitively
// computed from them, sorted. Keys not in the graph are skipped.
func (g *Graph) Downstream(keys []string) []string {
	seen := make(map[string]struct{})
	var frontier []string
	for _, key := range keys {
		if !g.Has(key) {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		frontier = append(frontier, key)
	}

	for len(frontier) > 0 {
		var next []string
		for _, key := range frontier {
			for _, dep := range g.dependents[key] {
				if _, dup := seen[dep]; dup {
					continue
				}
				seen[dep] = struct{}{}
				next = append(next, dep)
			}
		}
		frontier = next
	}

	out := make([]string, 0, len(seen))
	for key := range seen {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func (g *Graph) sortedKeys() []string {
	keys := make([]string, 0, len(g.dependents))
	for key := range g.dependents {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
