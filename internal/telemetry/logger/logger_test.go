package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewFormats(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"defaults", DefaultConfig()},
		{"json", Config{Level: "info", Format: "json"}},
		{"text", Config{Level: "debug", Format: "text"}},
		{"console is text", Config{Level: "info", Format: "console"}},
		{"empty format falls back to json", Config{Level: "info"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if l == nil {
				t.Fatal("New returned a nil logger")
			}
		})
	}
}

func TestEmitsStructuredAttrs(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		level   string
		logFunc func(string, ...any)
	}{
		{"DEBUG", l.Debug},
		{"INFO", l.Info},
		{"WARN", l.Warn},
		{"ERROR", l.Error},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf.Reset()
			tt.logFunc("artifact saved", "component", "vault")

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log output is not JSON: %v", err)
			}
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if entry["msg"] != "artifact saved" {
				t.Errorf("msg = %v, want %q", entry["msg"], "artifact saved")
			}
			if entry["component"] != "vault" {
				t.Errorf("component = %v, want vault", entry["component"])
			}
		})
	}
}

func TestWithCarriesAttrs(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.With("store", "metadata").Info("table reloaded")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["store"] != "metadata" {
		t.Errorf("store = %v, want metadata", entry["store"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "warn", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Debug("dropped")
	l.Info("dropped")
	if buf.Len() > 0 {
		t.Errorf("debug/info emitted below the warn threshold: %s", buf.String())
	}

	l.Warn("kept")
	if buf.Len() == 0 {
		t.Error("warn suppressed at the warn threshold")
	}
}

func TestSetLevelTakesEffectOnLiveLoggers(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "error", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Info("dropped")
	if buf.Len() > 0 {
		t.Error("info emitted below the error threshold")
	}

	SetLevel("debug")
	l.Info("kept after level change")
	if buf.Len() == 0 {
		t.Error("info suppressed after the level dropped to debug")
	}
	if got := GetLevel(); got != "debug" {
		t.Errorf("GetLevel = %q, want debug", got)
	}
}

func TestLevelNames(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "debug"},
		{"DEBUG", "debug"},
		{"info", "info"},
		{"warn", "warn"},
		{"WARNING", "warn"},
		{"error", "error"},
		{"verbose", "info"},
		{"", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			SetLevel(tt.input)
			if got := GetLevel(); got != tt.want {
				t.Errorf("SetLevel(%q); GetLevel() = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultLoggerNeverNil(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default returned nil")
	}
}

func TestPackageLevelFuncsUseDefault(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	SetDefault(l)

	tests := []struct {
		name string
		log  func(string, ...any)
	}{
		{"Debug", Debug},
		{"Info", Info},
		{"Warn", Warn},
		{"Error", Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.log("sweep complete")
			if buf.Len() == 0 {
				t.Errorf("%s wrote nothing through the default logger", tt.name)
			}
		})
	}
}

func TestWithContextPreservesOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.WithContext(context.Background()).Info("artifact saved")
	if buf.Len() == 0 {
		t.Error("WithContext logger wrote nothing")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("DefaultConfig().Level = %q, want info", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("DefaultConfig().Format = %q, want json", cfg.Format)
	}
	if cfg.Output == nil {
		t.Error("DefaultConfig left Output nil")
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "text", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Info("sweep complete", "component", "sweeper")

	out := buf.String()
	if !strings.Contains(out, "sweep complete") {
		t.Errorf("text output missing message: %s", out)
	}
	if !strings.Contains(out, "component=sweeper") {
		t.Errorf("text output missing attr: %s", out)
	}
}
