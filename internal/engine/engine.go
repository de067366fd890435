// Package engine orchestrates the formula lifecycle: defining computed
// properties, writing values, propagating staleness, and recomputing
// stale formulas in dependency order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fieldline-labs/fieldline/internal/dag"
	"github.com/fieldline-labs/fieldline/internal/state"
	"github.com/fieldline-labs/fieldline/pkg/deps"
	"github.com/fieldline-labs/fieldline/pkg/eval"
	"github.com/fieldline-labs/fieldline/pkg/expr"
	"github.com/fieldline-labs/fieldline/pkg/funcs"
	"github.com/fieldline-labs/fieldline/pkg/staleness"
	"github.com/fieldline-labs/fieldline/pkg/value"
)

// ContextFactory produces evaluation contexts bound to one tenant and
// one current entity. state.SQLiteStore implements it.
type ContextFactory interface {
	EvalContext(ctx context.Context, tenantID, selfEntityID string, reg *funcs.Registry) eval.Context
}

// Engine ties the formula packages to a persistent store.
type Engine struct {
	logger   *slog.Logger
	store    state.Store
	contexts ContextFactory
	resolver deps.RelationshipResolver
	registry *funcs.Registry
	prop     *staleness.Propagator

	tenantID    string
	maxFanout   int
	parallelism int

	// Parsed-formula cache keyed by source text.
	cacheMu sync.RWMutex
	cache   map[string]expr.Expr
}

// Config holds engine configuration.
type Config struct {
	// Store is the persistence backend.
	Store state.Store
	// Contexts produces eval contexts against the store.
	Contexts ContextFactory
	// Resolver expands relationship hops during dependency resolution.
	Resolver deps.RelationshipResolver
	// Registry is the function registry (nil means funcs.Default()).
	Registry *funcs.Registry
	// Emitter receives staleness events (optional).
	Emitter staleness.Emitter
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger

	// TenantID scopes every engine operation.
	TenantID string
	// MaxDepth bounds staleness traversal (0 means the package default).
	MaxDepth int
	// MaxFanout bounds relationship expansion (0 means the package default).
	MaxFanout int
	// Parallelism bounds concurrent recomputation within one dependency
	// level (0 means sequential).
	Parallelism int
}

// New creates an engine. Store, Contexts, Resolver, and TenantID are
// required.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine: store is required")
	}
	if cfg.Contexts == nil {
		return nil, fmt.Errorf("engine: context factory is required")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("engine: relationship resolver is required")
	}
	if cfg.TenantID == "" {
		return nil, fmt.Errorf("engine: tenant id is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	registry := cfg.Registry
	if registry == nil {
		registry = funcs.Default()
	}

	logger.Debug("initializing engine", "tenant", cfg.TenantID)

	return &Engine{
		logger:   logger,
		store:    cfg.Store,
		contexts: cfg.Contexts,
		resolver: cfg.Resolver,
		registry: registry,
		prop: &staleness.Propagator{
			Store:    cfg.Store,
			Emitter:  cfg.Emitter,
			MaxDepth: cfg.MaxDepth,
		},
		tenantID:    cfg.TenantID,
		maxFanout:   cfg.MaxFanout,
		parallelism: cfg.Parallelism,
		cache:       make(map[string]expr.Expr),
	}, nil
}

// Registry returns the function registry the engine evaluates with.
func (e *Engine) Registry() *funcs.Registry { return e.registry }

// parseCached parses a formula, memoizing by source text. Formulas are
// immutable strings, so the cache never invalidates.
func (e *Engine) parseCached(source string) (expr.Expr, error) {
	e.cacheMu.RLock()
	ast, ok := e.cache[source]
	e.cacheMu.RUnlock()
	if ok {
		return ast, nil
	}

	ast, err := expr.Parse(source)
	if err != nil {
		return nil, err
	}

	e.cacheMu.Lock()
	e.cache[source] = ast
	e.cacheMu.Unlock()
	return ast, nil
}

// ValidationError reports a formula rejected at definition time.
type ValidationError struct {
	Diagnostics []expr.Diagnostic
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		parts[i] = d.String()
	}
	return "invalid formula: " + strings.Join(parts, "; ")
}

// DefineProperty parses and validates a formula, resolves its readset
// through the relationship graph, and persists the definition with its
// dependency edges. The property is marked stale so the next sweep
// computes its first value.
func (e *Engine) DefineProperty(ctx context.Context, entityID, property, source string) error {
	ast, err := e.parseCached(source)
	if err != nil {
		return err
	}
	if diags := expr.ValidateExpr(ast, e.registry); len(diags) > 0 {
		return &ValidationError{Diagnostics: diags}
	}

	extracted := deps.Extract(ast)
	resolved, err := deps.Resolve(ctx, extracted, deps.ResolveContext{
		CurrentEntityID: entityID,
		Resolver:        e.resolver,
		MaxFanout:       e.maxFanout,
	})
	if err != nil {
		return fmt.Errorf("resolving dependencies of %s.%s: %w", entityID, property, err)
	}

	reads := make([]staleness.PropertyKey, len(resolved))
	for i, r := range resolved {
		reads[i] = staleness.PropertyKey{EntityID: r.EntityID, Property: r.Property}
	}

	if err := e.store.SaveComputedDefinition(ctx, e.tenantID, entityID, property, source, reads); err != nil {
		return err
	}

	key := staleness.PropertyKey{EntityID: entityID, Property: property}
	if err := e.store.MarkStale(ctx, e.tenantID, key); err != nil {
		return err
	}

	e.logger.Debug("defined computed property",
		"entity", entityID, "property", property, "reads", len(reads))
	return nil
}

// WriteValue stores a raw property value and propagates staleness to
// every transitive dependent.
func (e *Engine) WriteValue(ctx context.Context, entityID, property string, v value.Value) error {
	if err := e.store.SetPropertyValue(ctx, e.tenantID, entityID, property, v); err != nil {
		return err
	}

	key := staleness.PropertyKey{EntityID: entityID, Property: property}
	if err := e.prop.Propagate(ctx, e.tenantID, key); err != nil {
		return err
	}

	e.logger.Debug("wrote property value", "entity", entityID, "property", property)
	return nil
}

// Write is one entry of a batch write.
type Write struct {
	EntityID string
	Property string
	Value    value.Value
}

// WriteValues stores several values and propagates staleness once with
// a shared visited set, so shared dependents are marked a single time.
func (e *Engine) WriteValues(ctx context.Context, writes []Write) error {
	keys := make([]staleness.PropertyKey, len(writes))
	for i, w := range writes {
		if err := e.store.SetPropertyValue(ctx, e.tenantID, w.EntityID, w.Property, w.Value); err != nil {
			return err
		}
		keys[i] = staleness.PropertyKey{EntityID: w.EntityID, Property: w.Property}
	}
	return e.prop.PropagateBatch(ctx, e.tenantID, keys)
}

// Evaluate parses (or reuses) a formula and evaluates it with the
// given entity as @self.
func (e *Engine) Evaluate(ctx context.Context, entityID, source string) (value.Value, error) {
	ast, err := e.parseCached(source)
	if err != nil {
		return value.Null(), err
	}

	ectx := e.contexts.EvalContext(ctx, e.tenantID, entityID, e.registry)
	res := eval.Evaluate(ast, ectx)
	if !res.Ok() {
		return value.Null(), res.Err
	}
	return res.Value, nil
}

// Recompute evaluates one stale computed property, stores the result,
// and clears its stale mark. Dependents are not re-propagated: they
// were already marked when the upstream change happened.
func (e *Engine) Recompute(ctx context.Context, key staleness.PropertyKey) error {
	def, err := e.store.GetComputedDefinition(ctx, e.tenantID, key.EntityID, key.Property)
	if errors.Is(err, state.ErrNotFound) {
		// A raw property can carry a stale mark when a definition was
		// deleted after propagation. Nothing to compute.
		e.logger.Warn("stale mark without definition", "key", key.String())
		return e.store.ClearStale(ctx, e.tenantID, key)
	}
	if err != nil {
		return err
	}

	v, err := e.Evaluate(ctx, key.EntityID, def.Source)
	if err != nil {
		return fmt.Errorf("recomputing %s: %w", key, err)
	}

	if err := e.store.SetPropertyValue(ctx, e.tenantID, key.EntityID, key.Property, v); err != nil {
		return err
	}
	if err := e.store.ClearStale(ctx, e.tenantID, key); err != nil {
		return err
	}

	e.logger.Debug("recomputed property", "key", key.String(), "value", v.String())
	return nil
}

// RecomputeAll recomputes every stale property in dependency order and
// returns how many were recomputed. Properties in the same dependency
// level run concurrently up to the configured parallelism; a cycle in
// the stored dependency graph is returned as a *staleness.CycleError.
//
// An evaluation failure is a per-property outcome: the property keeps
// its stale mark, siblings still recompute, and the failures come back
// joined in the returned error. Store errors abort the sweep.
func (e *Engine) RecomputeAll(ctx context.Context) (int, error) {
	stale, err := e.store.GetStaleProperties(ctx, e.tenantID)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	levels, err := e.staleLevels(ctx, stale)
	if err != nil {
		return 0, err
	}

	var mu sync.Mutex
	count := 0
	var failed []error

	runOne := func(ctx context.Context, key staleness.PropertyKey) error {
		err := e.Recompute(ctx, key)
		var everr *eval.EvalError
		if errors.As(err, &everr) {
			e.logger.Warn("recompute failed", "key", key.String(), "error", err)
			mu.Lock()
			failed = append(failed, err)
			mu.Unlock()
			return nil
		}
		if err != nil {
			return err
		}
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}

	for _, level := range levels {
		if e.parallelism > 1 && len(level) > 1 {
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(e.parallelism)
			for _, key := range level {
				g.Go(func() error { return runOne(gctx, key) })
			}
			if err := g.Wait(); err != nil {
				return count, err
			}
		} else {
			for _, key := range level {
				if err := runOne(ctx, key); err != nil {
					return count, err
				}
			}
		}
	}

	e.logger.Info("recomputed stale properties",
		"count", count, "failed", len(failed), "levels", len(levels))
	return count, errors.Join(failed...)
}

// staleLevels groups the stale set into dependency levels: every key
// in a level depends only on keys of earlier levels (or on non-stale
// properties).
func (e *Engine) staleLevels(ctx context.Context, stale []staleness.PropertyKey) ([][]staleness.PropertyKey, error) {
	inSet := make(map[string]staleness.PropertyKey, len(stale))
	g := dag.New()
	for _, key := range stale {
		inSet[key.String()] = key
		g.Add(key.String())
	}

	// Edges among stale keys only: an upstream outside the set is
	// current and imposes no ordering.
	for _, key := range stale {
		dependents, err := e.store.GetDependents(ctx, e.tenantID, key)
		if err != nil {
			return nil, err
		}
		for _, dep := range dependents {
			if _, ok := inSet[dep.String()]; !ok {
				continue
			}
			if dep == key {
				return nil, &staleness.CycleError{Path: []staleness.PropertyKey{key, dep}}
			}
			if err := g.Link(key.String(), dep.String()); err != nil {
				return nil, err
			}
		}
	}

	if path := g.Cycle(); path != nil {
		keys := make([]staleness.PropertyKey, len(path))
		for i, id := range path {
			keys[i] = inSet[id]
		}
		return nil, &staleness.CycleError{Path: keys}
	}

	ids, err := g.ExecutionLevels()
	if err != nil {
		return nil, err
	}

	levels := make([][]staleness.PropertyKey, len(ids))
	for i, level := range ids {
		keys := make([]staleness.PropertyKey, len(level))
		for j, id := range level {
			keys[j] = inSet[id]
		}
		levels[i] = keys
	}
	return levels, nil
}
