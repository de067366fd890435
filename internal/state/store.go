// Package state persists the entity model behind the formula engine:
// entities, property values, computed-property definitions with their
// extracted dependency edges, relationship links, and stale marks.
//
// SQLiteStore is the reference implementation. Hosts with their own
// storage implement Store (and staleness.Store, which SQLiteStore also
// satisfies) against it.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/fieldline-labs/fieldline/pkg/staleness"
	"github.com/fieldline-labs/fieldline/pkg/value"
)

// ErrNotFound reports a missing row. Callers distinguish "absent" from
// storage failure with errors.Is.
var ErrNotFound = errors.New("not found")

// Entity is one row of the entity table.
type Entity struct {
	ID        string
	TenantID  string
	Name      string
	CreatedAt time.Time
}

// ComputedDefinition is a stored formula bound to one property.
type ComputedDefinition struct {
	TenantID  string
	EntityID  string
	Property  string
	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the persistence surface consumed by the engine.
type Store interface {
	// Entities.
	CreateEntity(ctx context.Context, tenantID, name string) (*Entity, error)
	GetEntity(ctx context.Context, tenantID, id string) (*Entity, error)
	ListEntities(ctx context.Context, tenantID string) ([]*Entity, error)

	// Property values.
	SetPropertyValue(ctx context.Context, tenantID, entityID, property string, v value.Value) error
	GetPropertyValue(ctx context.Context, tenantID, entityID, property string) (value.Value, error)

	// Computed definitions. Save replaces the definition's dependency
	// edges atomically with the new readset.
	SaveComputedDefinition(ctx context.Context, tenantID, entityID, property, source string, reads []staleness.PropertyKey) error
	GetComputedDefinition(ctx context.Context, tenantID, entityID, property string) (*ComputedDefinition, error)
	ListComputedDefinitions(ctx context.Context, tenantID string) ([]*ComputedDefinition, error)
	DeleteComputedDefinition(ctx context.Context, tenantID, entityID, property string) error

	// Relationships.
	AddRelationship(ctx context.Context, tenantID, entityID, relType, targetID string) error
	RemoveRelationship(ctx context.Context, tenantID, entityID, relType, targetID string) error

	// Staleness bookkeeping, shared with staleness.Store.
	GetDependents(ctx context.Context, tenantID string, key staleness.PropertyKey) ([]staleness.PropertyKey, error)
	MarkStale(ctx context.Context, tenantID string, key staleness.PropertyKey) error
	MarkStaleMany(ctx context.Context, tenantID string, keys []staleness.PropertyKey) error
	GetStaleProperties(ctx context.Context, tenantID string) ([]staleness.PropertyKey, error)
	ClearStale(ctx context.Context, tenantID string, key staleness.PropertyKey) error
}
