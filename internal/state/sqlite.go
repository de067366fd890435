package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fieldline-labs/fieldline/pkg/deps"
	"github.com/fieldline-labs/fieldline/pkg/eval"
	"github.com/fieldline-labs/fieldline/pkg/funcs"
	"github.com/fieldline-labs/fieldline/pkg/value"
)

// SQLiteStore implements Store and staleness.Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// --- Entity operations ---

// CreateEntity inserts a new entity and returns it with a fresh id.
func (s *SQLiteStore) CreateEntity(ctx context.Context, tenantID, name string) (*Entity, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	e := &Entity{
		ID:        generateID(),
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (id, tenant_id, name, created_at) VALUES (?, ?, ?, ?)`,
		e.ID, e.TenantID, e.Name, e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity: %w", err)
	}

	return e, nil
}

// GetEntity retrieves an entity by id.
func (s *SQLiteStore) GetEntity(ctx context.Context, tenantID, id string) (*Entity, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	e := &Entity{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, created_at FROM entities WHERE tenant_id = ? AND id = ?`,
		tenantID, id,
	).Scan(&e.ID, &e.TenantID, &e.Name, &e.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	return e, nil
}

// ListEntities returns all entities of a tenant, oldest first.
func (s *SQLiteStore) ListEntities(ctx context.Context, tenantID string) ([]*Entity, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, created_at FROM entities WHERE tenant_id = ? ORDER BY created_at, id`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var out []*Entity
	for rows.Next() {
		e := &Entity{}
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Name, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Property value operations ---

// SetPropertyValue upserts the current value of one property.
func (s *SQLiteStore) SetPropertyValue(ctx context.Context, tenantID, entityID, property string, v value.Value) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	encoded, err := encodeValue(v)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO property_values (tenant_id, entity_id, property, value, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(tenant_id, entity_id, property)
		 DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		tenantID, entityID, property, encoded, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set property value: %w", err)
	}
	return nil
}

// GetPropertyValue returns the stored value of one property, or
// ErrNotFound when none has been written.
func (s *SQLiteStore) GetPropertyValue(ctx context.Context, tenantID, entityID, property string) (value.Value, error) {
	if s.db == nil {
		return value.Null(), fmt.Errorf("database not opened")
	}

	var encoded string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM property_values WHERE tenant_id = ? AND entity_id = ? AND property = ?`,
		tenantID, entityID, property,
	).Scan(&encoded)

	if errors.Is(err, sql.ErrNoRows) {
		return value.Null(), fmt.Errorf("property %s.%s: %w", entityID, property, ErrNotFound)
	}
	if err != nil {
		return value.Null(), fmt.Errorf("failed to get property value: %w", err)
	}

	return decodeValue(encoded)
}

// --- Relationship operations ---

// AddRelationship records a directed relationship link.
func (s *SQLiteStore) AddRelationship(ctx context.Context, tenantID, entityID, relType, targetID string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO relationships (tenant_id, entity_id, rel_type, target_id) VALUES (?, ?, ?, ?)`,
		tenantID, entityID, relType, targetID,
	)
	if err != nil {
		return fmt.Errorf("failed to add relationship: %w", err)
	}
	return nil
}

// RemoveRelationship deletes a relationship link if present.
func (s *SQLiteStore) RemoveRelationship(ctx context.Context, tenantID, entityID, relType, targetID string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM relationships WHERE tenant_id = ? AND entity_id = ? AND rel_type = ? AND target_id = ?`,
		tenantID, entityID, relType, targetID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove relationship: %w", err)
	}
	return nil
}

// relationshipTargets returns the targets of one relationship hop in
// insertion-stable order.
func (s *SQLiteStore) relationshipTargets(ctx context.Context, tenantID, entityID, relType string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT target_id FROM relationships WHERE tenant_id = ? AND entity_id = ? AND rel_type = ? ORDER BY target_id`,
		tenantID, entityID, relType,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		targets = append(targets, id)
	}
	return targets, rows.Err()
}

// Resolver adapts the store to deps.RelationshipResolver for one
// tenant.
func (s *SQLiteStore) Resolver(tenantID string) deps.RelationshipResolver {
	return &storeResolver{store: s, tenantID: tenantID}
}

type storeResolver struct {
	store    *SQLiteStore
	tenantID string
}

func (r *storeResolver) ResolveRelationship(ctx context.Context, entityID, relationshipType string) ([]string, error) {
	return r.store.relationshipTargets(ctx, r.tenantID, entityID, relationshipType)
}

// EvalContext binds the store to one tenant and one current entity as
// an eval.Context. A property with no stored value falls back to the
// relationship table: a single link reads as a reference, several as a
// list of references, none as null.
func (s *SQLiteStore) EvalContext(ctx context.Context, tenantID, selfEntityID string, reg *funcs.Registry) eval.Context {
	return &storeEvalContext{store: s, ctx: ctx, tenantID: tenantID, self: selfEntityID, reg: reg}
}

type storeEvalContext struct {
	store    *SQLiteStore
	ctx      context.Context
	tenantID string
	self     string
	reg      *funcs.Registry
}

func (c *storeEvalContext) Registry() *funcs.Registry {
	return c.reg
}

func (c *storeEvalContext) Property(entityID, property string) (value.Value, error) {
	id := entityID
	if id == "" {
		id = c.self
	}

	v, err := c.store.GetPropertyValue(c.ctx, c.tenantID, id, property)
	if errors.Is(err, ErrNotFound) {
		if targets, terr := c.store.relationshipTargets(c.ctx, c.tenantID, id, property); terr != nil {
			return value.Null(), terr
		} else if len(targets) == 1 {
			return value.NewReference(targets[0]), nil
		} else if len(targets) > 1 {
			refs := make([]value.Value, len(targets))
			for i, target := range targets {
				refs[i] = value.NewReference(target)
			}
			return value.NewList(refs), nil
		}

		// No value and no links: a known entity reads as null, an
		// unknown entity is a hard failure.
		if _, gerr := c.store.GetEntity(c.ctx, c.tenantID, id); gerr == nil {
			return value.Null(), nil
		} else if !errors.Is(gerr, ErrNotFound) {
			return value.Null(), gerr
		}
		return value.Null(), &eval.NotFoundError{EntityID: id, Property: property}
	}
	if err != nil {
		return value.Null(), err
	}
	return v, nil
}
