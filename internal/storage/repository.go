// Package storage persists analysis results in a schema catalog. The
// Repository interface is backend-agnostic; concrete backends live in
// subpackages and self-register from init(), and binaries blank-import
// storage/all to get the full set.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"flatschema/internal/analysis"
)

// Config selects and connects a backend.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is
//     backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Record is one persisted analysis in the catalog. Fingerprint is unique
// per schema shape; saving the same shape twice is a no-op.
type Record struct {
	ID          int64
	AnalysisID  string
	SchemaName  string
	SourceKind  string
	Mode        string
	Fingerprint string
	FieldCount  int
	ArrayCount  int
	ElapsedMs   int64
	SchemaJSON  string
	CreatedAt   time.Time
}

// FromResult maps an analysis result onto a catalog record. CreatedAt is
// left zero; backends stamp it at insert time.
func FromResult(res *analysis.Result) Record {
	return Record{
		AnalysisID:  res.AnalysisID,
		SchemaName:  res.SchemaName,
		SourceKind:  res.SourceKind,
		Mode:        res.Mode,
		Fingerprint: res.Fingerprint,
		FieldCount:  res.Metadata.TotalAttributes,
		ArrayCount:  res.Metadata.ArrayElements,
		ElapsedMs:   res.AnalysisTimeMs,
		SchemaJSON:  res.SchemaJSON,
	}
}

// Repository is the backend-agnostic catalog interface.
//
// IMPORTANT: each backend implements the dedupe semantics in its own
// idiomatic way (Postgres ON CONFLICT, SQLite OR IGNORE, SQL Server
// IF NOT EXISTS).
type Repository interface {
	// EnsureSchema creates the catalog table if it does not exist.
	// Safe to call at every startup.
	EnsureSchema(ctx context.Context) error

	// SaveResult inserts one record. Returns false when a record with
	// the same fingerprint already exists; the catalog is unchanged.
	SaveResult(ctx context.Context, rec Record) (bool, error)

	// ListRecent returns the newest records, newest first. An empty
	// schemaName lists across all schemas.
	ListRecent(ctx context.Context, schemaName string, limit int) ([]Record, error)

	// Close releases backend resources. Treat as "call once".
	Close()
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
// Call from an init() function in the backend package.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. Duplicate registration would make
//     backend selection ambiguous, so it fails fast.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Errors:
//   - If cfg.Kind is empty or unsupported.
//   - Whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing storage.Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend kinds, unsorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}
