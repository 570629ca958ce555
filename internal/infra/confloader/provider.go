// Package confloader loads layered configuration for PlotVault.
package confloader

import (
	"errors"

	kmaps "github.com/knadh/koanf/maps"
)

// staticProvider hands a fixed key/value set to koanf. Keys use the
// dotted form ("storage.dir") and are expanded to the nested shape of
// the merged tree.
type staticProvider struct {
	values map[string]any
}

// Read returns the values as a nested map.
func (p staticProvider) Read() (map[string]any, error) {
	return kmaps.Unflatten(p.values, "."), nil
}

// ReadBytes is unsupported; this provider has no serialized form.
func (p staticProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("confloader: static provider has no byte form")
}
