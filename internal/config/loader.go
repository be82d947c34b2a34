package config

import (
	"context"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional file, and env
// vars. Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if BULKSCAN_CONFIG is set
//  3. env (prefix BULKSCAN_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("BULKSCAN_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Map env keys like BULKSCAN_TARGET_FPS -> target_fps (flat keys,
	// underscores preserved to match the koanf struct tags).
	envProvider := env.Provider("BULKSCAN_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "bulkscan_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return ErrEmptyAddr
	case c.InventoryBaseURL == "":
		return ErrEmptyInventoryURL
	case c.TargetFPS <= 0:
		return ErrInvalidFPS
	case c.MaxAttempts <= 0:
		return ErrInvalidRetry
	}
	return nil
}
