package deps

import (
	"context"
	"fmt"
	"testing"

	"github.com/fieldline-labs/fieldline/pkg/expr"
)

func parse(t *testing.T, source string) expr.Expr {
	t.Helper()
	ast, err := expr.Parse(source)
	if err != nil {
		t.Fatalf("%q: failed to parse: %v", source, err)
	}
	return ast
}

func TestExtract_Shorthand(t *testing.T) {
	got := Extract(parse(t, "#price * #qty + #price"))

	if len(got) != 2 {
		t.Fatalf("expected 2 dependencies, got %d: %v", len(got), got)
	}
	if got[0].EntityRef != SelfRef || got[0].Property != "price" || got[0].Path != "price" {
		t.Errorf("unexpected first dependency: %+v", got[0])
	}
	if got[1].Property != "qty" {
		t.Errorf("expected qty second, got %+v", got[1])
	}
}

func TestExtract_ReferencePaths(t *testing.T) {
	got := Extract(parse(t, "SUM(@self.orders[*].total) + @self.account.fx.rate"))

	if len(got) != 2 {
		t.Fatalf("expected 2 dependencies, got %d: %v", len(got), got)
	}

	orders := got[0]
	if orders.Path != "orders.total" || orders.Property != "total" {
		t.Errorf("unexpected collection dependency: %+v", orders)
	}
	if !orders.IsCollection {
		t.Error("expected orders.total to be a collection dependency")
	}
	if len(orders.Relationships) != 1 || orders.Relationships[0] != "orders" {
		t.Errorf("unexpected relationships: %v", orders.Relationships)
	}

	rate := got[1]
	if rate.Path != "account.fx.rate" || rate.IsCollection {
		t.Errorf("unexpected chained dependency: %+v", rate)
	}
	if len(rate.Relationships) != 2 || rate.Relationships[0] != "account" || rate.Relationships[1] != "fx" {
		t.Errorf("unexpected relationships: %v", rate.Relationships)
	}
}

func TestExtract_ExplicitEntity(t *testing.T) {
	id := "9f2c1b34-55aa-4bd0-9c6e-1d2f3a4b5c6d"
	got := Extract(parse(t, fmt.Sprintf("@%s.rate * #amount", id)))

	if len(got) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(got))
	}
	if got[0].EntityRef != id {
		t.Errorf("expected entity ref %s, got %s", id, got[0].EntityRef)
	}
	if got[1].EntityRef != SelfRef {
		t.Errorf("expected self ref, got %s", got[1].EntityRef)
	}
}

func TestExtract_Dedupe(t *testing.T) {
	// The same (entityRef, path) may appear many times in a formula;
	// extraction reports it once, in first-seen order.
	got := Extract(parse(t, "IF(#a > 0, #a + @self.a, #b + #a)"))

	if len(got) != 2 {
		t.Fatalf("expected 2 dependencies, got %d: %v", len(got), got)
	}
	if got[0].Path != "a" || got[1].Path != "b" {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestExtract_NoDependencies(t *testing.T) {
	if got := Extract(parse(t, "1 + 2 * 3")); len(got) != 0 {
		t.Errorf("expected no dependencies, got %v", got)
	}
	if got := Extract(parse(t, "NOW()")); len(got) != 0 {
		t.Errorf("expected no dependencies, got %v", got)
	}
}

// fakeResolver resolves relationships from a static adjacency map
// keyed "entityID/relType".
type fakeResolver struct {
	links map[string][]string
	calls int
}

func (f *fakeResolver) ResolveRelationship(_ context.Context, entityID, relType string) ([]string, error) {
	f.calls++
	return f.links[entityID+"/"+relType], nil
}

func TestResolve_Self(t *testing.T) {
	deps := Extract(parse(t, "#price * #qty"))

	got, err := Resolve(context.Background(), deps, ResolveContext{
		CurrentEntityID: "ent-1",
		Resolver:        &fakeResolver{},
	})
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 resolved, got %d", len(got))
	}
	if got[0] != (Resolved{EntityID: "ent-1", Property: "price"}) {
		t.Errorf("unexpected resolution: %+v", got[0])
	}
}

func TestResolve_RelationshipFanout(t *testing.T) {
	deps := Extract(parse(t, "SUM(@self.orders[*].total)"))

	r := &fakeResolver{links: map[string][]string{
		"cust-1/orders": {"ord-1", "ord-2", "ord-3"},
	}}
	got, err := Resolve(context.Background(), deps, ResolveContext{
		CurrentEntityID: "cust-1",
		Resolver:        r,
	})
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 resolved, got %d: %v", len(got), got)
	}
	for i, id := range []string{"ord-1", "ord-2", "ord-3"} {
		if got[i] != (Resolved{EntityID: id, Property: "total"}) {
			t.Errorf("resolved %d: expected %s.total, got %+v", i, id, got[i])
		}
	}
}

func TestResolve_ChainedHops(t *testing.T) {
	deps := Extract(parse(t, "@self.account.fx.rate"))

	r := &fakeResolver{links: map[string][]string{
		"ent-1/account": {"acc-1"},
		"acc-1/fx":      {"fx-1"},
	}}
	got, err := Resolve(context.Background(), deps, ResolveContext{
		CurrentEntityID: "ent-1",
		Resolver:        r,
	})
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if len(got) != 1 || got[0] != (Resolved{EntityID: "fx-1", Property: "rate"}) {
		t.Errorf("unexpected resolution: %v", got)
	}
}

func TestResolve_EmptyHop(t *testing.T) {
	// A relationship resolving to no entities yields no resolutions,
	// not an error.
	deps := Extract(parse(t, "SUM(@self.orders[*].total)"))

	got, err := Resolve(context.Background(), deps, ResolveContext{
		CurrentEntityID: "cust-1",
		Resolver:        &fakeResolver{},
	})
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no resolutions, got %v", got)
	}
}

func TestResolve_MaxFanout(t *testing.T) {
	deps := Extract(parse(t, "SUM(@self.orders[*].total)"))

	many := make([]string, 50)
	for i := range many {
		many[i] = fmt.Sprintf("ord-%d", i)
	}
	r := &fakeResolver{links: map[string][]string{"cust-1/orders": many}}

	_, err := Resolve(context.Background(), deps, ResolveContext{
		CurrentEntityID: "cust-1",
		Resolver:        r,
		MaxFanout:       10,
	})
	if err == nil {
		t.Fatal("expected fan-out limit error")
	}
}

func TestHasCollectionTraversal(t *testing.T) {
	if !HasCollectionTraversal(parse(t, "SUM(@self.orders[*].total)")) {
		t.Error("expected true for [*] traversal")
	}
	if HasCollectionTraversal(parse(t, "@self.orders[0].total")) {
		t.Error("expected false for indexed traversal")
	}
}

func TestReferencedEntityIDs(t *testing.T) {
	id := "9f2c1b34-55aa-4bd0-9c6e-1d2f3a4b5c6d"
	src := fmt.Sprintf("@%s.rate + @%s.fee + #local", id, id)
	got := ReferencedEntityIDs(parse(t, src))
	if len(got) != 1 || got[0] != id {
		t.Errorf("expected [%s], got %v", id, got)
	}
}

func TestUsedFunctions(t *testing.T) {
	got := UsedFunctions(parse(t, "IF(SUM(@self.xs[*]) > 0, SUM(@self.xs[*]), COUNT(@self.xs[*]))"))
	if len(got) != 3 || got[0] != "IF" || got[1] != "SUM" || got[2] != "COUNT" {
		t.Errorf("unexpected functions: %v", got)
	}
}
