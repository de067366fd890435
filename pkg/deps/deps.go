// Package deps derives and resolves the property dependencies of a
// parsed formula expression.
//
// Extraction is pure and total: it runs once when a computed property
// is defined, and its output is persisted alongside the definition by
// the host. Resolution expands relationship hops into concrete entity
// ids through an injected resolver and happens on demand.
package deps

import (
	"context"
	"fmt"
	"strings"

	"github.com/fieldline-labs/fieldline/pkg/expr"
)

// SelfRef is the EntityRef of a dependency on the owning entity.
const SelfRef = "self"

// Dependency is one property an expression reads, as derived from the
// AST at definition time.
type Dependency struct {
	// EntityRef is SelfRef or an explicit entity id.
	EntityRef string
	// Property is the name of the final path segment.
	Property string
	// Path is the full dot-joined segment path.
	Path string
	// IsCollection is true when any segment fans out ([*]).
	IsCollection bool
	// Relationships holds the names of all but the final segment, in
	// traversal order.
	Relationships []string
}

// Key returns the deduplication key (entityRef, path).
func (d Dependency) Key() string {
	return d.EntityRef + ":" + d.Path
}

// Resolved is a dependency after relationship traversal: a concrete
// (entity id, property) pair.
type Resolved struct {
	EntityID string
	Property string
}

// RelationshipResolver resolves one relationship hop. Implemented by
// the host; a hop may fan out to many entities or to none.
type RelationshipResolver interface {
	ResolveRelationship(ctx context.Context, entityID, relationshipType string) ([]string, error)
}

// Extract walks the AST once and returns its dependencies,
// deduplicated by (entityRef, path) in first-seen order. It cannot
// fail: malformed references are rejected earlier, by the parser.
func Extract(ast expr.Expr) []Dependency {
	seen := make(map[string]struct{})
	var out []Dependency

	add := func(d Dependency) {
		if _, dup := seen[d.Key()]; dup {
			return
		}
		seen[d.Key()] = struct{}{}
		out = append(out, d)
	}

	walk(ast, func(node expr.Expr) {
		switch n := node.(type) {
		case *expr.Identifier:
			add(Dependency{
				EntityRef: SelfRef,
				Property:  n.Name,
				Path:      n.Name,
			})
		case *expr.PropertyRef:
			add(fromRef(n))
		}
	})

	return out
}

func fromRef(ref *expr.PropertyRef) Dependency {
	entityRef := SelfRef
	if ref.EntityID != "" {
		entityRef = ref.EntityID
	}

	names := make([]string, len(ref.Path))
	isCollection := false
	for i, seg := range ref.Path {
		names[i] = seg.Name
		if seg.Traversal == expr.TraverseAll {
			isCollection = true
		}
	}

	return Dependency{
		EntityRef:     entityRef,
		Property:      names[len(names)-1],
		Path:          strings.Join(names, "."),
		IsCollection:  isCollection,
		Relationships: names[:len(names)-1],
	}
}

// ResolveContext carries what Resolve needs from the host.
type ResolveContext struct {
	// CurrentEntityID is what SelfRef resolves to.
	CurrentEntityID string
	// Resolver expands relationship hops.
	Resolver RelationshipResolver
	// MaxFanout bounds the breadth of one dependency's expansion as a
	// guard against pathological relationship graphs. 0 means the
	// default of 10000.
	MaxFanout int
}

const defaultMaxFanout = 10000

// Resolve expands each dependency through its relationship hops to
// concrete (entity id, property) pairs, deduplicated. A hop resolving
// to zero entities contributes nothing; it is not an error.
func Resolve(ctx context.Context, dependencies []Dependency, rctx ResolveContext) ([]Resolved, error) {
	maxFanout := rctx.MaxFanout
	if maxFanout <= 0 {
		maxFanout = defaultMaxFanout
	}

	seen := make(map[Resolved]struct{})
	var out []Resolved

	for _, dep := range dependencies {
		base := dep.EntityRef
		if base == SelfRef {
			base = rctx.CurrentEntityID
		}

		ids := []string{base}
		for _, rel := range dep.Relationships {
			// Breadth expansion: each hop applies to every id from the
			// previous hop.
			var next []string
			nextSeen := make(map[string]struct{})
			for _, id := range ids {
				expanded, err := rctx.Resolver.ResolveRelationship(ctx, id, rel)
				if err != nil {
					return nil, fmt.Errorf("resolving relationship %q of %s: %w", rel, id, err)
				}
				for _, e := range expanded {
					if _, dup := nextSeen[e]; dup {
						continue
					}
					nextSeen[e] = struct{}{}
					next = append(next, e)
				}
				if len(next) > maxFanout {
					return nil, fmt.Errorf("relationship %q of dependency %s fans out beyond %d entities", rel, dep.Path, maxFanout)
				}
			}
			ids = next
			if len(ids) == 0 {
				break
			}
		}

		for _, id := range ids {
			r := Resolved{EntityID: id, Property: dep.Property}
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}

	return out, nil
}

// HasCollectionTraversal reports whether any reference in the tree
// fans out over a to-many relationship.
func HasCollectionTraversal(ast expr.Expr) bool {
	found := false
	walk(ast, func(node expr.Expr) {
		if ref, ok := node.(*expr.PropertyRef); ok {
			for _, seg := range ref.Path {
				if seg.Traversal == expr.TraverseAll {
					found = true
				}
			}
		}
	})
	return found
}

// ReferencedEntityIDs returns the explicit entity ids referenced by
// the tree (@<uuid> references only), deduplicated in first-seen order.
func ReferencedEntityIDs(ast expr.Expr) []string {
	seen := make(map[string]struct{})
	var out []string
	walk(ast, func(node expr.Expr) {
		if ref, ok := node.(*expr.PropertyRef); ok && ref.EntityID != "" {
			if _, dup := seen[ref.EntityID]; !dup {
				seen[ref.EntityID] = struct{}{}
				out = append(out, ref.EntityID)
			}
		}
	})
	return out
}

// UsedFunctions returns the function names called by the tree,
// deduplicated in first-seen order.
func UsedFunctions(ast expr.Expr) []string {
	seen := make(map[string]struct{})
	var out []string
	walk(ast, func(node expr.Expr) {
		if call, ok := node.(*expr.CallExpr); ok {
			if _, dup := seen[call.Name]; !dup {
				seen[call.Name] = struct{}{}
				out = append(out, call.Name)
			}
		}
	})
	return out
}

// walk visits every node top-down.
func walk(node expr.Expr, visit func(expr.Expr)) {
	if node == nil {
		return
	}
	visit(node)
	switch n := node.(type) {
	case *expr.BinaryExpr:
		walk(n.Left, visit)
		walk(n.Right, visit)
	case *expr.UnaryExpr:
		walk(n.Expr, visit)
	case *expr.CallExpr:
		for _, arg := range n.Args {
			walk(arg, visit)
		}
	}
}
