package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fieldline-labs/fieldline/pkg/staleness"
)

// --- Computed definition operations ---

// SaveComputedDefinition upserts a formula and replaces its dependency
// edges with the given readset in one transaction.
func (s *SQLiteStore) SaveComputedDefinition(ctx context.Context, tenantID, entityID, property, source string, reads []staleness.PropertyKey) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO computed_definitions (tenant_id, entity_id, property, source, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(tenant_id, entity_id, property)
		 DO UPDATE SET source = excluded.source, updated_at = excluded.updated_at`,
		tenantID, entityID, property, source, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save computed definition: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM dependency_edges WHERE tenant_id = ? AND dep_entity_id = ? AND dep_property = ?`,
		tenantID, entityID, property,
	)
	if err != nil {
		return fmt.Errorf("failed to clear dependency edges: %w", err)
	}

	for _, read := range reads {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO dependency_edges (tenant_id, src_entity_id, src_property, dep_entity_id, dep_property)
			 VALUES (?, ?, ?, ?, ?)`,
			tenantID, read.EntityID, read.Property, entityID, property,
		)
		if err != nil {
			return fmt.Errorf("failed to insert dependency edge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// GetComputedDefinition retrieves a stored formula.
func (s *SQLiteStore) GetComputedDefinition(ctx context.Context, tenantID, entityID, property string) (*ComputedDefinition, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	def := &ComputedDefinition{}
	err := s.db.QueryRowContext(ctx,
		`SELECT tenant_id, entity_id, property, source, created_at, updated_at
		 FROM computed_definitions WHERE tenant_id = ? AND entity_id = ? AND property = ?`,
		tenantID, entityID, property,
	).Scan(&def.TenantID, &def.EntityID, &def.Property, &def.Source, &def.CreatedAt, &def.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("computed definition %s.%s: %w", entityID, property, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get computed definition: %w", err)
	}
	return def, nil
}

// ListComputedDefinitions returns all formulas of a tenant.
func (s *SQLiteStore) ListComputedDefinitions(ctx context.Context, tenantID string) ([]*ComputedDefinition, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT tenant_id, entity_id, property, source, created_at, updated_at
		 FROM computed_definitions WHERE tenant_id = ? ORDER BY entity_id, property`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list computed definitions: %w", err)
	}
	defer rows.Close()

	var out []*ComputedDefinition
	for rows.Next() {
		def := &ComputedDefinition{}
		if err := rows.Scan(&def.TenantID, &def.EntityID, &def.Property, &def.Source, &def.CreatedAt, &def.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan computed definition: %w", err)
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

// DeleteComputedDefinition removes a formula and its dependency edges.
func (s *SQLiteStore) DeleteComputedDefinition(ctx context.Context, tenantID, entityID, property string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM computed_definitions WHERE tenant_id = ? AND entity_id = ? AND property = ?`,
		tenantID, entityID, property,
	)
	if err != nil {
		return fmt.Errorf("failed to delete computed definition: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM dependency_edges WHERE tenant_id = ? AND dep_entity_id = ? AND dep_property = ?`,
		tenantID, entityID, property,
	)
	if err != nil {
		return fmt.Errorf("failed to delete dependency edges: %w", err)
	}

	return tx.Commit()
}

// --- staleness.Store ---

// GetDependents returns every computed property whose definition reads
// the given key.
func (s *SQLiteStore) GetDependents(ctx context.Context, tenantID string, key staleness.PropertyKey) ([]staleness.PropertyKey, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT dep_entity_id, dep_property FROM dependency_edges
		 WHERE tenant_id = ? AND src_entity_id = ? AND src_property = ?
		 ORDER BY dep_entity_id, dep_property`,
		tenantID, key.EntityID, key.Property,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependents: %w", err)
	}
	defer rows.Close()

	var out []staleness.PropertyKey
	for rows.Next() {
		var k staleness.PropertyKey
		if err := rows.Scan(&k.EntityID, &k.Property); err != nil {
			return nil, fmt.Errorf("failed to scan dependent: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// MarkStale records a stale mark. Re-marking an already-stale property
// is a no-op.
func (s *SQLiteStore) MarkStale(ctx context.Context, tenantID string, key staleness.PropertyKey) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO stale_marks (tenant_id, entity_id, property, marked_at) VALUES (?, ?, ?, ?)`,
		tenantID, key.EntityID, key.Property, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark stale: %w", err)
	}
	return nil
}

// MarkStaleMany records several stale marks in one transaction.
func (s *SQLiteStore) MarkStaleMany(ctx context.Context, tenantID string, keys []staleness.PropertyKey) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, key := range keys {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO stale_marks (tenant_id, entity_id, property, marked_at) VALUES (?, ?, ?, ?)`,
			tenantID, key.EntityID, key.Property, now,
		)
		if err != nil {
			return fmt.Errorf("failed to mark stale: %w", err)
		}
	}

	return tx.Commit()
}

// GetStaleProperties returns every currently-stale property of a
// tenant, oldest mark first.
func (s *SQLiteStore) GetStaleProperties(ctx context.Context, tenantID string) ([]staleness.PropertyKey, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_id, property FROM stale_marks WHERE tenant_id = ? ORDER BY marked_at, entity_id, property`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale properties: %w", err)
	}
	defer rows.Close()

	var out []staleness.PropertyKey
	for rows.Next() {
		var k staleness.PropertyKey
		if err := rows.Scan(&k.EntityID, &k.Property); err != nil {
			return nil, fmt.Errorf("failed to scan stale property: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// ClearStale removes a stale mark after successful recomputation.
func (s *SQLiteStore) ClearStale(ctx context.Context, tenantID string, key staleness.PropertyKey) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM stale_marks WHERE tenant_id = ? AND entity_id = ? AND property = ?`,
		tenantID, key.EntityID, key.Property,
	)
	if err != nil {
		return fmt.Errorf("failed to clear stale mark: %w", err)
	}
	return nil
}
