package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// App is the CLI application config. Every field has a working default,
// so a missing config file is not an error. Precedence, lowest first:
// defaults, YAML file, FLATSCHEMA_* environment, command-line flags
// (flags are applied by the CLI, not here).
type App struct {
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Store   StoreConfig   `yaml:"store"`
	Workers int           `yaml:"workers"`
}

// LogConfig controls slog output and optional file rotation.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// File enables rotated file logging when set; empty logs to stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	// Backend is one of datadog, pushgateway, none.
	Backend        string `yaml:"backend"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	FlushEverySec  int    `yaml:"flush_every_seconds"`
	// Tags are extra backend tags like "env:prod,service:analyze".
	Tags string `yaml:"tags"`
}

// StoreConfig selects the optional analysis catalog backend.
type StoreConfig struct {
	// Kind is one of sqlite, postgres, mssql; empty disables the catalog.
	Kind string `yaml:"kind"`
	DSN  string `yaml:"dsn"`
}

// Default returns the built-in defaults.
func Default() App {
	return App{
		Log:     LogConfig{Level: "info", MaxSizeMB: 50, MaxBackups: 3},
		Metrics: MetricsConfig{Backend: "none", PushgatewayURL: "http://localhost:9091", FlushEverySec: 60},
		Workers: 4,
	}
}

// Load builds the app config from defaults, then the YAML file at path
// (skipped when path is empty; missing file is an error because the user
// asked for it), then FLATSCHEMA_* environment overrides.
func Load(path string) (App, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return App{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return App{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overlays FLATSCHEMA_* variables onto cfg. Unset variables
// leave the current value alone; unparseable numbers are ignored rather
// than fatal, Validate flags nonsense values afterwards.
func applyEnv(cfg *App) {
	setStr := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}

	setStr("FLATSCHEMA_LOG_LEVEL", &cfg.Log.Level)
	setStr("FLATSCHEMA_LOG_FILE", &cfg.Log.File)
	setStr("FLATSCHEMA_METRICS_BACKEND", &cfg.Metrics.Backend)
	setStr("FLATSCHEMA_PUSHGATEWAY_URL", &cfg.Metrics.PushgatewayURL)
	setStr("FLATSCHEMA_METRICS_TAGS", &cfg.Metrics.Tags)
	setStr("FLATSCHEMA_STORE_KIND", &cfg.Store.Kind)
	setStr("FLATSCHEMA_STORE_DSN", &cfg.Store.DSN)
	setInt("FLATSCHEMA_WORKERS", &cfg.Workers)
	setInt("FLATSCHEMA_METRICS_FLUSH_SECONDS", &cfg.Metrics.FlushEverySec)
}
