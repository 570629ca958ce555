// Package config defines the PlotVault configuration structure.
package config

import "strings"

// Normalize trims whitespace and lowercases the enumerated fields so
// verification and consumers see canonical values.
func Normalize(cfg *Config) {
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Storage.Dir = strings.TrimSpace(cfg.Storage.Dir)
	cfg.Auth.Audience = strings.TrimSpace(cfg.Auth.Audience)
	cfg.Retention.Schedule = strings.TrimSpace(cfg.Retention.Schedule)
}

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg

	if sanitized.Auth.Secret != "" {
		sanitized.Auth.Secret = maskSecret(sanitized.Auth.Secret)
	}
	if sanitized.Auth.Passphrase != "" {
		sanitized.Auth.Passphrase = maskSecret(sanitized.Auth.Passphrase)
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
