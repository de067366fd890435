package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline-labs/fieldline/pkg/eval"
	"github.com/fieldline-labs/fieldline/pkg/staleness"
	"github.com/fieldline-labs/fieldline/pkg/value"
)

const testTenant = "test-tenant"

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore()
	require.NoError(t, s.Open(":memory:"))
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())
	return s
}

func TestSQLiteStore_Migrate(t *testing.T) {
	s := openTestStore(t)
	version, err := s.GetMigrationVersion()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, version, int64(1))
}

func TestSQLiteStore_Entities(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e, err := s.CreateEntity(ctx, testTenant, "invoice")
	require.NoError(t, err)
	require.NotEmpty(t, e.ID)

	got, err := s.GetEntity(ctx, testTenant, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "invoice", got.Name)

	_, err = s.GetEntity(ctx, testTenant, "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)

	// Entities are tenant-scoped.
	_, err = s.GetEntity(ctx, "other-tenant", e.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CreateEntity(ctx, testTenant, "customer")
	require.NoError(t, err)

	all, err := s.ListEntities(ctx, testTenant)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLiteStore_PropertyValues(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e, err := s.CreateEntity(ctx, testTenant, "invoice")
	require.NoError(t, err)

	cases := []value.Value{
		value.NewNumber(42.5),
		value.NewNumberUnit(9.5, "kg"),
		value.NewText("hello"),
		value.NewBool(true),
		value.Null(),
		value.NewDatetime(time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)),
		value.NewDuration(90 * time.Minute),
		value.NewReference("other-entity"),
		value.NewList([]value.Value{value.NewNumber(1), value.NewText("x"), value.Null()}),
		value.NewRecord(map[string]value.Value{"amount": value.NewNumber(3), "ccy": value.NewText("usd")}),
	}

	for i, v := range cases {
		prop := "p" + string(rune('a'+i))
		require.NoError(t, s.SetPropertyValue(ctx, testTenant, e.ID, prop, v))
		got, err := s.GetPropertyValue(ctx, testTenant, e.ID, prop)
		require.NoError(t, err)
		assert.True(t, got.Equal(v), "kind %s: stored %s, loaded %s", v.Kind, v, got)
	}

	// Upsert replaces the value.
	require.NoError(t, s.SetPropertyValue(ctx, testTenant, e.ID, "pa", value.NewNumber(99)))
	got, err := s.GetPropertyValue(ctx, testTenant, e.ID, "pa")
	require.NoError(t, err)
	assert.True(t, got.Equal(value.NewNumber(99)))

	_, err = s.GetPropertyValue(ctx, testTenant, e.ID, "never-set")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_Relationships(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cust, err := s.CreateEntity(ctx, testTenant, "customer")
	require.NoError(t, err)
	ord1, err := s.CreateEntity(ctx, testTenant, "order")
	require.NoError(t, err)
	ord2, err := s.CreateEntity(ctx, testTenant, "order")
	require.NoError(t, err)

	require.NoError(t, s.AddRelationship(ctx, testTenant, cust.ID, "orders", ord1.ID))
	require.NoError(t, s.AddRelationship(ctx, testTenant, cust.ID, "orders", ord2.ID))
	// Adding the same link twice is a no-op.
	require.NoError(t, s.AddRelationship(ctx, testTenant, cust.ID, "orders", ord1.ID))

	targets, err := s.Resolver(testTenant).ResolveRelationship(ctx, cust.ID, "orders")
	require.NoError(t, err)
	assert.Len(t, targets, 2)

	require.NoError(t, s.RemoveRelationship(ctx, testTenant, cust.ID, "orders", ord1.ID))
	targets, err = s.Resolver(testTenant).ResolveRelationship(ctx, cust.ID, "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{ord2.ID}, targets)
}

func TestSQLiteStore_ComputedDefinitions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e, err := s.CreateEntity(ctx, testTenant, "invoice")
	require.NoError(t, err)

	reads := []staleness.PropertyKey{
		{EntityID: e.ID, Property: "qty"},
		{EntityID: e.ID, Property: "price"},
	}
	require.NoError(t, s.SaveComputedDefinition(ctx, testTenant, e.ID, "total", "#qty * #price", reads))

	def, err := s.GetComputedDefinition(ctx, testTenant, e.ID, "total")
	require.NoError(t, err)
	assert.Equal(t, "#qty * #price", def.Source)

	// The persisted edges drive dependent lookups.
	deps, err := s.GetDependents(ctx, testTenant, staleness.PropertyKey{EntityID: e.ID, Property: "qty"})
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, staleness.PropertyKey{EntityID: e.ID, Property: "total"}, deps[0])

	// Redefining replaces the edge set.
	require.NoError(t, s.SaveComputedDefinition(ctx, testTenant, e.ID, "total", "#price", []staleness.PropertyKey{
		{EntityID: e.ID, Property: "price"},
	}))
	deps, err = s.GetDependents(ctx, testTenant, staleness.PropertyKey{EntityID: e.ID, Property: "qty"})
	require.NoError(t, err)
	assert.Empty(t, deps)

	all, err := s.ListComputedDefinitions(ctx, testTenant)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.DeleteComputedDefinition(ctx, testTenant, e.ID, "total"))
	_, err = s.GetComputedDefinition(ctx, testTenant, e.ID, "total")
	assert.ErrorIs(t, err, ErrNotFound)
	deps, err = s.GetDependents(ctx, testTenant, staleness.PropertyKey{EntityID: e.ID, Property: "price"})
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestSQLiteStore_StaleMarks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	k1 := staleness.PropertyKey{EntityID: "e1", Property: "a"}
	k2 := staleness.PropertyKey{EntityID: "e2", Property: "b"}

	require.NoError(t, s.MarkStale(ctx, testTenant, k1))
	// Marking again is idempotent.
	require.NoError(t, s.MarkStale(ctx, testTenant, k1))
	require.NoError(t, s.MarkStaleMany(ctx, testTenant, []staleness.PropertyKey{k1, k2}))
	require.NoError(t, s.MarkStaleMany(ctx, testTenant, nil))

	stale, err := s.GetStaleProperties(ctx, testTenant)
	require.NoError(t, err)
	assert.Len(t, stale, 2)

	// Other tenants see nothing.
	other, err := s.GetStaleProperties(ctx, "other-tenant")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, s.ClearStale(ctx, testTenant, k1))
	stale, err = s.GetStaleProperties(ctx, testTenant)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, k2, stale[0])
}

func TestSQLiteStore_EvalContext(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e, err := s.CreateEntity(ctx, testTenant, "invoice")
	require.NoError(t, err)
	require.NoError(t, s.SetPropertyValue(ctx, testTenant, e.ID, "price", value.NewNumber(12)))

	ec := s.EvalContext(ctx, testTenant, e.ID, nil)

	got, err := ec.Property("", "price")
	require.NoError(t, err)
	assert.True(t, got.Equal(value.NewNumber(12)))

	// An unset property of an existing entity reads as null.
	got, err = ec.Property("", "missing")
	require.NoError(t, err)
	assert.True(t, got.IsNull())

	// An unknown entity is a hard not-found.
	_, err = ec.Property("ghost-entity", "price")
	var nf *eval.NotFoundError
	assert.True(t, errors.As(err, &nf))

	assert.NotNil(t, ec.Registry())
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	s := NewSQLiteStore()
	_, err := s.CreateEntity(context.Background(), testTenant, "x")
	assert.Error(t, err)
}
