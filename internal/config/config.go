// Package config loads engine configuration from fieldline.yaml,
// environment variables, and command-line flags, in increasing order
// of priority.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "fieldline.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "fieldline.yml"

// Default configuration values.
const (
	DefaultStatePath   = "fieldline.db"
	DefaultTenantID    = "default"
	DefaultMaxDepth    = 1000
	DefaultMaxFanout   = 10000
	DefaultParallelism = 4
)

// Config holds the engine configuration.
type Config struct {
	// StatePath is the SQLite database path, or ":memory:".
	StatePath string `koanf:"state_path"`
	// TenantID scopes all operations when no explicit tenant is given.
	TenantID string `koanf:"tenant_id"`
	// MaxDepth bounds staleness traversal depth.
	MaxDepth int `koanf:"max_depth"`
	// MaxFanout bounds relationship expansion per dependency.
	MaxFanout int `koanf:"max_fanout"`
	// Parallelism bounds concurrent recomputation within one level.
	Parallelism int `koanf:"parallelism"`
	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`
}

// Load builds a Config from defaults, the config file (explicit path,
// or fieldline.yaml/yml in the current directory), FIELDLINE_
// environment variables, and finally any changed flags.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"state_path":  DefaultStatePath,
		"tenant_id":   DefaultTenantID,
		"max_depth":   DefaultMaxDepth,
		"max_fanout":  DefaultMaxFanout,
		"parallelism": DefaultParallelism,
		"verbose":     false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile(cfgFile)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
	}

	// FIELDLINE_MAX_DEPTH -> max_depth
	if err := k.Load(env.Provider("FIELDLINE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "FIELDLINE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			// --state is the flag spelling of the state_path key.
			if key == "state" {
				return "state_path", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero-valued fields that must not stay zero.
func (c *Config) ApplyDefaults() {
	if c.StatePath == "" {
		c.StatePath = DefaultStatePath
	}
	if c.TenantID == "" {
		c.TenantID = DefaultTenantID
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.MaxFanout <= 0 {
		c.MaxFanout = DefaultMaxFanout
	}
	if c.Parallelism <= 0 {
		c.Parallelism = DefaultParallelism
	}
}

// findConfigFile finds the config file to use.
// Priority: explicit path > fieldline.yaml > fieldline.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(ConfigFileName); err == nil {
		return ConfigFileName
	}
	if _, err := os.Stat(ConfigFileNameAlt); err == nil {
		return ConfigFileNameAlt
	}
	return ""
}

// FindProjectRoot walks up from the given directory to find one
// containing fieldline.yaml or fieldline.yml.
// Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
}
