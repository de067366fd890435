// Package staleness propagates staleness through the persisted
// dependency relation: when an upstream property changes, every
// computed property that transitively reads it is marked stale and a
// notification is emitted per dependent.
//
// The traversal is breadth-first with a per-call visited set, so
// dependency cycles terminate and no key is marked or notified twice.
// Collaborator calls are sequential within one propagation; the Store
// is not assumed safe for concurrent use. Independent propagations
// may run concurrently: each call owns its traversal state.
//
// A collaborator failure aborts the in-flight traversal. Stale marks
// applied before the failure are not rolled back; MarkStale is
// idempotent, so the host can simply retry.
package staleness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fieldline-labs/fieldline/internal/dag"
)

// PropertyKey identifies one property of one entity: the unit of
// staleness propagation.
type PropertyKey struct {
	EntityID string
	Property string
}

// String returns the canonical "entityID.property" form.
func (k PropertyKey) String() string {
	return k.EntityID + "." + k.Property
}

// ParseKey parses the canonical string form of a PropertyKey.
func ParseKey(s string) (PropertyKey, error) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return PropertyKey{}, fmt.Errorf("malformed property key %q", s)
	}
	return PropertyKey{EntityID: s[:i], Property: s[i+1:]}, nil
}

// Store is the persistence collaborator consumed by propagation. It is
// implemented by the host platform against its own storage; see
// internal/state for the SQLite reference implementation.
type Store interface {
	// GetDependents returns every property whose computed definition
	// reads the given key.
	GetDependents(ctx context.Context, tenantID string, key PropertyKey) ([]PropertyKey, error)
	// MarkStale marks one property stale. Must be idempotent.
	MarkStale(ctx context.Context, tenantID string, key PropertyKey) error
	// MarkStaleMany marks several properties stale. Must be idempotent.
	MarkStaleMany(ctx context.Context, tenantID string, keys []PropertyKey) error
	// GetStaleProperties returns every currently-stale property, for
	// bulk recomputation sweeps.
	GetStaleProperties(ctx context.Context, tenantID string) ([]PropertyKey, error)
}

// Event is one staleness notification. Source names the immediate
// cause of this staleness (not necessarily the propagation root), so a
// causal chain can be reconstructed by following events. Envelope
// fields (event id, tenant, actor, timestamp) are the emitter's
// concern.
type Event struct {
	EntityID           string `json:"entity_id"`
	PropertyName       string `json:"property_name"`
	SourceEntityID     string `json:"source_entity_id"`
	SourcePropertyName string `json:"source_property_name"`
}

// Emitter receives staleness notifications.
type Emitter interface {
	Emit(ctx context.Context, tenantID string, event Event) error
}

// ErrMaxDepthExceeded reports a traversal deeper than the configured
// bound, a safety stop against pathological dependency chains.
var ErrMaxDepthExceeded = errors.New("staleness traversal exceeded maximum depth")

// CycleError reports a dependency cycle found by TopologicalSort.
type CycleError struct {
	Path []PropertyKey
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = k.String()
	}
	return "circular dependency: " + strings.Join(parts, " -> ")
}

// DefaultMaxDepth bounds traversal depth when no override is given.
const DefaultMaxDepth = 1000

// Propagator runs staleness traversals against a Store and an Emitter.
// The zero MaxDepth means DefaultMaxDepth.
type Propagator struct {
	Store    Store
	Emitter  Emitter
	MaxDepth int
}

// Propagate performs the staleness traversal for a single changed
// property. The changed property itself is not marked stale; its
// transitive dependents are, each exactly once.
func (p *Propagator) Propagate(ctx context.Context, tenantID string, changed PropertyKey) error {
	return p.propagate(ctx, tenantID, []PropertyKey{changed})
}

// PropagateBatch propagates from several simultaneously-changed
// properties with a shared visited set: a key reachable from more than
// one root is marked and notified once.
func (p *Propagator) PropagateBatch(ctx context.Context, tenantID string, changed []PropertyKey) error {
	return p.propagate(ctx, tenantID, changed)
}

func (p *Propagator) propagate(ctx context.Context, tenantID string, roots []PropertyKey) error {
	maxDepth := p.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	// Roots count as visited so a cycle back to a root cannot re-mark it.
	visited := make(map[PropertyKey]struct{}, len(roots))
	frontier := make([]PropertyKey, 0, len(roots))
	for _, root := range roots {
		if _, dup := visited[root]; dup {
			continue
		}
		visited[root] = struct{}{}
		frontier = append(frontier, root)
	}

	depth := 0
	for len(frontier) > 0 {
		depth++
		if depth > maxDepth {
			return fmt.Errorf("%w (%d levels)", ErrMaxDepthExceeded, maxDepth)
		}

		var next []PropertyKey
		for _, source := range frontier {
			dependents, err := p.Store.GetDependents(ctx, tenantID, source)
			if err != nil {
				return fmt.Errorf("fetching dependents of %s: %w", source, err)
			}

			for _, dep := range dependents {
				if _, seen := visited[dep]; seen {
					continue
				}
				visited[dep] = struct{}{}

				if err := p.Store.MarkStale(ctx, tenantID, dep); err != nil {
					return fmt.Errorf("marking %s stale: %w", dep, err)
				}
				if p.Emitter != nil {
					event := Event{
						EntityID:           dep.EntityID,
						PropertyName:       dep.Property,
						SourceEntityID:     source.EntityID,
						SourcePropertyName: source.Property,
					}
					if err := p.Emitter.Emit(ctx, tenantID, event); err != nil {
						return fmt.Errorf("emitting staleness event for %s: %w", dep, err)
					}
				}

				next = append(next, dep)
			}
		}
		frontier = next
	}

	return nil
}

// TopologicalSort returns the downstream closure of roots in
// dependency order: every property appears after all of its
// dependencies within the closure. A dependency cycle is reported as a
// *CycleError rather than a truncated or wrong order.
func (p *Propagator) TopologicalSort(ctx context.Context, tenantID string, roots []PropertyKey) ([]PropertyKey, error) {
	maxDepth := p.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	// Load the reachable dependency subgraph through the collaborator.
	g := dag.New()
	byID := make(map[string]PropertyKey)
	visited := make(map[PropertyKey]struct{})
	frontier := make([]PropertyKey, 0, len(roots))
	for _, root := range roots {
		if _, dup := visited[root]; dup {
			continue
		}
		visited[root] = struct{}{}
		frontier = append(frontier, root)
		g.Add(root.String())
		byID[root.String()] = root
	}

	depth := 0
	for len(frontier) > 0 {
		depth++
		if depth > maxDepth {
			return nil, fmt.Errorf("%w (%d levels)", ErrMaxDepthExceeded, maxDepth)
		}

		var next []PropertyKey
		for _, source := range frontier {
			dependents, err := p.Store.GetDependents(ctx, tenantID, source)
			if err != nil {
				return nil, fmt.Errorf("fetching dependents of %s: %w", source, err)
			}
			for _, dep := range dependents {
				g.Add(dep.String())
				byID[dep.String()] = dep
				if source == dep {
					return nil, &CycleError{Path: []PropertyKey{source, dep}}
				}
				if err := g.Link(source.String(), dep.String()); err != nil {
					return nil, err
				}
				if _, seen := visited[dep]; seen {
					continue
				}
				visited[dep] = struct{}{}
				next = append(next, dep)
			}
		}
		frontier = next
	}

	if path := g.Cycle(); path != nil {
		keys := make([]PropertyKey, len(path))
		for i, id := range path {
			keys[i] = byID[id]
		}
		return nil, &CycleError{Path: keys}
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	keys := make([]PropertyKey, len(order))
	for i, id := range order {
		keys[i] = byID[id]
	}
	return keys, nil
}

// Propagate is the package-level convenience over a one-shot
// Propagator with default depth.
func Propagate(ctx context.Context, tenantID string, changed PropertyKey, store Store, emitter Emitter) error {
	p := &Propagator{Store: store, Emitter: emitter}
	return p.Propagate(ctx, tenantID, changed)
}

// PropagateBatch is the package-level convenience for multiple roots.
func PropagateBatch(ctx context.Context, tenantID string, changed []PropertyKey, store Store, emitter Emitter) error {
	p := &Propagator{Store: store, Emitter: emitter}
	return p.PropagateBatch(ctx, tenantID, changed)
}

// TopologicalSort is the package-level convenience over a one-shot
// Propagator.
func TopologicalSort(ctx context.Context, tenantID string, roots []PropertyKey, store Store) ([]PropertyKey, error) {
	p := &Propagator{Store: store}
	return p.TopologicalSort(ctx, tenantID, roots)
}
