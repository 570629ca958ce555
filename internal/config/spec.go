// Package config defines the PlotVault configuration structure.
package config

import (
	"path/filepath"
	"time"
)

// Config is the root configuration for PlotVault.
type Config struct {
	Logging   LoggingSection   `koanf:"logging"`
	Storage   StorageSection   `koanf:"storage"`
	Auth      AuthSection      `koanf:"auth"`
	Retention RetentionSection `koanf:"retention"`
	Metrics   MetricsSection   `koanf:"metrics"`
}

// LoggingSection configures logging.
type LoggingSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// StorageSection configures the data directory.
type StorageSection struct {
	// Dir is the root data directory. The token table, the artifact
	// table and the blob directory all live under it.
	Dir string `koanf:"dir"`

	// Strict makes a corrupt store file fail Open instead of being
	// quarantined.
	Strict bool `koanf:"strict"`
}

// AuthSection configures token issuance and verification.
//
// Durations are plain seconds, not duration strings, so the same
// numbers work from YAML, environment variables and the wire format.
type AuthSection struct {
	// Secret signs tokens. Required, at least 16 bytes.
	Secret string `koanf:"secret"`

	// TTL is the default token lifetime in seconds.
	TTL int64 `koanf:"ttl"`

	// Audience is stamped into tokens created without an explicit
	// audience. Empty falls back to the service default.
	Audience string `koanf:"audience"`

	// Passphrase seals the token table at rest. Empty leaves the
	// table plain.
	Passphrase string `koanf:"passphrase"`

	// Leeway is the not-before tolerance in seconds.
	Leeway int64 `koanf:"leeway"`
}

// RetentionSection configures the sweeper.
type RetentionSection struct {
	// Age is the retention age in seconds. Zero purges everything on
	// each sweep.
	Age int64 `koanf:"age"`

	// Schedule is the sweep cron expression.
	Schedule string `koanf:"schedule"`

	// Rate caps sweep deletions per second. Zero means unpaced.
	Rate float64 `koanf:"rate"`

	// Burst is the deletion rate burst.
	Burst int `koanf:"burst"`

	// Grace is the orphan-blob grace window in seconds.
	Grace int64 `koanf:"grace"`
}

// MetricsSection configures Prometheus instrumentation.
type MetricsSection struct {
	Enabled bool `koanf:"enabled"`
}

// TTLDuration returns the default token lifetime.
func (a AuthSection) TTLDuration() time.Duration {
	return time.Duration(a.TTL) * time.Second
}

// LeewayDuration returns the not-before tolerance.
func (a AuthSection) LeewayDuration() time.Duration {
	return time.Duration(a.Leeway) * time.Second
}

// AgeDuration returns the retention age.
func (r RetentionSection) AgeDuration() time.Duration {
	return time.Duration(r.Age) * time.Second
}

// GraceDuration returns the orphan grace window.
func (r RetentionSection) GraceDuration() time.Duration {
	return time.Duration(r.Grace) * time.Second
}

// TokenTablePath returns the token table location under the data dir.
func (c *Config) TokenTablePath() string {
	return filepath.Join(c.Storage.Dir, "auth", "tokens.json")
}

// MetadataPath returns the artifact table location under the data dir.
func (c *Config) MetadataPath() string {
	return filepath.Join(c.Storage.Dir, "storage", "metadata.json")
}

// BlobDir returns the blob directory under the data dir.
func (c *Config) BlobDir() string {
	return filepath.Join(c.Storage.Dir, "storage", "blobs")
}
