// Package config defines the PlotVault configuration structure.
package config

import (
	"github.com/plotvault/plotvault-go/internal/infra/confloader"
	"github.com/plotvault/plotvault-go/internal/telemetry/logger"
)

// Watch reloads the configuration file whenever it changes and applies
// the new log level. A reload that fails to parse or verify is logged
// and skipped, leaving the running configuration untouched. onReload,
// if non-nil, receives each accepted configuration.
//
// The returned watcher is already running; callers stop it via Stop.
func Watch(path string, log logger.Logger, onReload func(*Config)) (*confloader.Watcher, error) {
	if log == nil {
		log = logger.Default()
	}

	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		cfg, err := Load(path)
		if err != nil {
			log.Warn("config reload rejected, keeping previous configuration",
				"path", path, "error", err)
			return
		}

		logger.SetLevel(cfg.Logging.Level)
		log.Info("configuration reloaded",
			"path", path, "level", cfg.Logging.Level)

		if onReload != nil {
			onReload(cfg)
		}
	})

	w.Start()
	return w, nil
}
