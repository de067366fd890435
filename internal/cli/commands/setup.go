package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fieldline-labs/fieldline/internal/config"
	"github.com/fieldline-labs/fieldline/internal/engine"
	"github.com/fieldline-labs/fieldline/internal/notifier"
	"github.com/fieldline-labs/fieldline/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    *state.SQLiteStore
	Engine   *engine.Engine
	Notifier *notifier.Notifier
}

// NewCommandContext opens the store and builds an engine around it.
// Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	// Ensure state directory exists
	if cfg.StatePath != ":memory:" {
		stateDir := filepath.Dir(cfg.StatePath)
		if stateDir != "." && stateDir != "" {
			if err := os.MkdirAll(stateDir, 0750); err != nil {
				return nil, nil, err
			}
		}
	}

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	n := notifier.New()
	eng, err := engine.New(engine.Config{
		Store:       store,
		Contexts:    store,
		Resolver:    store.Resolver(cfg.TenantID),
		Emitter:     n,
		Logger:      logger,
		TenantID:    cfg.TenantID,
		MaxDepth:    cfg.MaxDepth,
		MaxFanout:   cfg.MaxFanout,
		Parallelism: cfg.Parallelism,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		_ = store.Close()
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Store:    store,
		Engine:   eng,
		Notifier: n,
	}, cleanup, nil
}

// NewCommandContextWithoutEngine builds a CommandContext without
// opening the store. Useful for commands that only work on formula
// text.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	return &CommandContext{
		Cfg:    getConfig(),
		Logger: config.GetLogger(cmd.Context()),
	}
}

// getConfig returns the loaded configuration, falling back to defaults
// when a command runs outside the root command (tests).
func getConfig() *config.Config {
	if cfg := config.Current(); cfg != nil {
		return cfg
	}
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	return cfg
}
