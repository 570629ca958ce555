// Package config defines the PlotVault configuration structure.
package config

import (
	"fmt"

	"github.com/plotvault/plotvault-go/internal/infra/confloader"
)

// Load builds the configuration from defaults, an optional YAML file
// and PLOTVAULT_* environment variables, then normalizes and verifies
// it. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	var opts []confloader.Option
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	Normalize(cfg)
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
