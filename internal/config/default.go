// Package config defines the PlotVault configuration structure.
package config

// Default configuration values.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultDataDir = "./data"

	DefaultTokenTTL = 30 * 24 * 60 * 60 // seconds
	DefaultAudience = "plotvault"
	DefaultLeeway   = 5 // seconds

	DefaultRetentionAge  = 30 * 24 * 60 * 60 // seconds
	DefaultSweepSchedule = "@hourly"
	DefaultSweepRate     = 50.0
	DefaultSweepBurst    = 10
	DefaultOrphanGrace   = 3600 // seconds
)

// Default returns the default configuration. The signing secret has no
// default and must be supplied.
func Default() *Config {
	return &Config{
		Logging: LoggingSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Storage: StorageSection{
			Dir: DefaultDataDir,
		},
		Auth: AuthSection{
			TTL:      DefaultTokenTTL,
			Audience: DefaultAudience,
			Leeway:   DefaultLeeway,
		},
		Retention: RetentionSection{
			Age:      DefaultRetentionAge,
			Schedule: DefaultSweepSchedule,
			Rate:     DefaultSweepRate,
			Burst:    DefaultSweepBurst,
			Grace:    DefaultOrphanGrace,
		},
		Metrics: MetricsSection{
			Enabled: true,
		},
	}
}
