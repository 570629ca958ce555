// Package confloader loads layered configuration for PlotVault.
//
// A Loader merges sources into one koanf tree in priority order:
// environment variables over the YAML file, the file over whatever
// defaults the target struct already carries.
package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix selects the PLOTVAULT_* environment namespace.
const DefaultEnvPrefix = "PLOTVAULT_"

// Loader merges configuration sources into one tree.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix replaces the PLOTVAULT_ environment prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithConfigFile sets the YAML file merged beneath the environment.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// NewLoader creates a Loader with the default environment prefix.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges the configured file, then the environment, and
// unmarshals the result into target via its koanf tags. Fields no
// source mentions keep the values target already has, so a pre-filled
// target acts as the default layer.
func (l *Loader) Load(target any) error {
	if l.filePath != "" {
		if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return fmt.Errorf("read %s: %w", l.filePath, err)
		}
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", l.envKey), nil); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// LoadMap merges explicit values on top of everything loaded so far.
// Keys are dotted ("storage.dir").
func (l *Loader) LoadMap(values map[string]any) error {
	if err := l.k.Load(staticProvider{values: values}, nil); err != nil {
		return fmt.Errorf("merge overrides: %w", err)
	}
	return nil
}

// envKey maps PLOTVAULT_STORAGE_DIR to storage.dir.
func (l *Loader) envKey(name string) string {
	name = strings.TrimPrefix(name, l.envPrefix)
	return strings.ReplaceAll(strings.ToLower(name), "_", ".")
}

// Get returns the value at a dotted key, nil when absent.
func (l *Loader) Get(key string) any {
	return l.k.Get(key)
}

// All returns the merged tree flattened back to dotted keys.
func (l *Loader) All() map[string]any {
	return l.k.All()
}
