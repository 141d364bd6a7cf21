// Package metrics defines the backend-agnostic metrics surface. The rest
// of the code records against a process-wide backend; binaries pick the
// concrete backend (pushgateway, datadog, none) at startup and the
// default nop backend keeps everything safe when none is configured.
package metrics

import (
	"sync"
	"time"
)

// Labels attach dimensions to a metric sample.
type Labels map[string]string

// Backend receives metric samples. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer samples and can push
// them on demand.
type Flusher interface {
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs the process-wide backend. Passing nil restores the
// nop backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a counter on the current backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one histogram sample on the current backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush pushes buffered samples if the current backend supports it.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// RecordAnalysis records the standard per-analysis samples: an outcome
// counter, the run duration, and the analyzed field count on success.
func RecordAnalysis(kind, mode string, err error, elapsed time.Duration, fields int) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	labels := Labels{"kind": kind, "mode": mode, "status": status}

	IncCounter("schema_analyses_total", 1, labels)
	ObserveHistogram("schema_analysis_duration_seconds", elapsed.Seconds(), labels)
	if err == nil {
		ObserveHistogram("schema_analysis_fields", float64(fields), Labels{"kind": kind, "mode": mode})
	}
}
