package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if MARKLAB_CONFIG is set
//  3. env (prefix MARKLAB_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("MARKLAB_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: MARKLAB_MARKER_COUNT, MARKLAB_SOURCE, ...
	// Map env keys like MARKLAB_FLAG_CAP -> flag_cap (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("MARKLAB_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "marklab_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints so failures surface at startup
// instead of mid-trial.
func (c *Config) Validate() error {
	if c.MarkerCount <= 0 {
		return fmt.Errorf("%w: marker_count must be positive, got %d", ErrInvalidConfig, c.MarkerCount)
	}
	if c.FlagProbability < 0 || c.FlagProbability > 1 {
		return fmt.Errorf("%w: flag_probability must be in [0,1], got %v", ErrInvalidConfig, c.FlagProbability)
	}
	if c.FlagCap < 0 || c.FlagCap > c.MarkerCount {
		return fmt.Errorf("%w: flag_cap must be in [0,%d], got %d", ErrInvalidConfig, c.MarkerCount, c.FlagCap)
	}
	switch c.Source {
	case SourceCamera, SourceSynthetic:
	case SourceReplay:
		if c.ReplayFile == "" {
			return fmt.Errorf("%w: replay source requires replay_file", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Source)
	}
	switch c.ResultsBackend {
	case BackendCSV:
		if c.ResultsFile == "" {
			return fmt.Errorf("%w: csv backend requires results_file", ErrInvalidConfig)
		}
	case BackendSQLite:
		if c.ResultsDB == "" {
			return fmt.Errorf("%w: sqlite backend requires results_db", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown results_backend %q", ErrInvalidConfig, c.ResultsBackend)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	}
	if c.DebounceMS < 0 {
		return fmt.Errorf("%w: debounce_ms must not be negative, got %d", ErrInvalidConfig, c.DebounceMS)
	}
	return nil
}
