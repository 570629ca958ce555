// Package config defines the PlotVault configuration structure.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/robfig/cron/v3"

	"github.com/plotvault/plotvault-go/internal/core/service"
	"github.com/plotvault/plotvault-go/internal/storage/tokenstore"
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if err := verifyLogging(&cfg.Logging); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyAuth(&cfg.Auth); err != nil {
		return err
	}
	return verifyRetention(&cfg.Retention)
}

func verifyLogging(cfg *LoggingSection) error {
	switch cfg.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch cfg.Format {
	case "json", "text", "console":
	default:
		return fmt.Errorf("logging.format %q is not one of json, text, console", cfg.Format)
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.Dir == "" {
		return errors.New("storage.dir is required")
	}

	// Check if data directory exists or can be created
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}

	return nil
}

func verifyAuth(cfg *AuthSection) error {
	if cfg.Secret == "" {
		return errors.New("auth.secret is required")
	}
	if len(cfg.Secret) < service.MinSecretLength {
		return fmt.Errorf("auth.secret must be at least %d bytes", service.MinSecretLength)
	}
	if cfg.TTL <= 0 {
		return errors.New("auth.ttl must be positive")
	}
	if cfg.Leeway < 0 {
		return errors.New("auth.leeway must not be negative")
	}
	if cfg.Passphrase != "" && len(cfg.Passphrase) < tokenstore.MinPassphraseLength {
		return fmt.Errorf("auth.passphrase must be at least %d bytes", tokenstore.MinPassphraseLength)
	}
	return nil
}

func verifyRetention(cfg *RetentionSection) error {
	if cfg.Age < 0 {
		return errors.New("retention.age must not be negative")
	}
	if cfg.Rate < 0 {
		return errors.New("retention.rate must not be negative")
	}
	if cfg.Burst < 1 {
		return errors.New("retention.burst must be at least 1")
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("retention.schedule %q is not a valid cron expression: %w", cfg.Schedule, err)
	}
	return nil
}
