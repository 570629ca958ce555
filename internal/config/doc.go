// Package config defines the PlotVault configuration structure.
//
// This package covers the configuration lifecycle:
//
//   - spec.go: Config struct definition and derived paths
//   - default.go: Default configuration values
//   - load.go: Loading via internal/infra/confloader
//   - sanitize.go: Normalization and log sanitization
//   - verify.go: Validation (required secret, schedule syntax, ranges)
//   - watch.go: Reload on file change with dynamic log level
//
// Durations are configured as plain seconds so YAML files and
// PLOTVAULT_* environment variables use the same representation.
package config
