package config

import (
	"context"
	"log/slog"
)

// loggerKey is used to store the logger in a command context.
type loggerKey struct{}

// ContextWithLogger returns a context carrying the logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the context, or a discard
// logger when none was stored.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// currentConfig stores the config loaded by the root command for
// access by subcommands.
var currentConfig *Config

// SetCurrent stores the loaded config.
func SetCurrent(c *Config) { currentConfig = c }

// Current returns the loaded config, or nil before loading.
func Current() *Config { return currentConfig }
