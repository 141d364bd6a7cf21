package config

import "fmt"

// Issue severities. Errors make the config unusable; warnings are
// printed and ignored.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is one validation finding, addressed by a dotted config path.
type Issue struct {
	Severity string
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var metricsBackends = map[string]bool{"": true, "none": true, "datadog": true, "pushgateway": true}

var storeKinds = map[string]bool{"": true, "sqlite": true, "postgres": true, "mssql": true}

// Validate checks an app config and returns every finding. Callers treat
// any SeverityError issue as fatal at startup.
func Validate(cfg App) []Issue {
	var issues []Issue
	errf := func(path, format string, args ...any) {
		issues = append(issues, Issue{SeverityError, path, fmt.Sprintf(format, args...)})
	}
	warnf := func(path, format string, args ...any) {
		issues = append(issues, Issue{SeverityWarning, path, fmt.Sprintf(format, args...)})
	}

	if !logLevels[cfg.Log.Level] {
		errf("log.level", "unknown level %q (want debug, info, warn or error)", cfg.Log.Level)
	}
	if cfg.Log.MaxSizeMB < 0 {
		errf("log.max_size_mb", "must not be negative")
	}
	if cfg.Log.MaxBackups < 0 {
		errf("log.max_backups", "must not be negative")
	}

	if !metricsBackends[cfg.Metrics.Backend] {
		errf("metrics.backend", "unknown backend %q (want datadog, pushgateway or none)", cfg.Metrics.Backend)
	}
	if cfg.Metrics.Backend == "pushgateway" && cfg.Metrics.PushgatewayURL == "" {
		errf("metrics.pushgateway_url", "required for the pushgateway backend")
	}
	if cfg.Metrics.FlushEverySec < 0 {
		errf("metrics.flush_every_seconds", "must not be negative")
	}

	if !storeKinds[cfg.Store.Kind] {
		errf("store.kind", "unknown kind %q (want sqlite, postgres or mssql)", cfg.Store.Kind)
	}
	if cfg.Store.Kind != "" && cfg.Store.DSN == "" {
		errf("store.dsn", "required when store.kind is set")
	}
	if cfg.Store.Kind == "" && cfg.Store.DSN != "" {
		warnf("store.dsn", "ignored because store.kind is empty")
	}

	if cfg.Workers < 1 {
		errf("workers", "must be at least 1, got %d", cfg.Workers)
	} else if cfg.Workers > 64 {
		warnf("workers", "%d workers is unusually high", cfg.Workers)
	}

	return issues
}

// HasError reports whether any issue is fatal.
func HasError(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
