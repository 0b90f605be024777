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

const envPrefix = "CARDIOVIZ_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if CARDIOVIZ_CONFIG is set
//  3. env (prefix CARDIOVIZ_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// CARDIOVIZ_FETCH_TIMEOUT_MS -> fetch_timeout_ms. Underscores are kept to match
	// the flat koanf tags; list values are comma separated.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if key == "config" {
			return "", nil
		}
		if key == "default_panels" {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if k.Exists("default_panels") {
		// mapstructure merges into an existing slice; start empty so the layer replaces it.
		cfg.DefaultPanels = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Source != SourceMock && c.Source != SourceHealthLake:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Source)
	case c.Source == SourceHealthLake && (c.DatastoreID == "" || c.Region == ""):
		return fmt.Errorf("%w: healthlake source requires datastore_id and region", ErrInvalidConfig)
	case c.MockLatencyMinMS < 0 || c.MockLatencyMaxMS < c.MockLatencyMinMS:
		return fmt.Errorf("%w: mock latency range [%d, %d] is invalid", ErrInvalidConfig, c.MockLatencyMinMS, c.MockLatencyMaxMS)
	case c.FetchTimeoutMS < 0 || c.RefreshIntervalMS < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	case c.RefreshQueueSize < 1:
		return fmt.Errorf("%w: refresh_queue_size must be at least 1", ErrInvalidConfig)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
