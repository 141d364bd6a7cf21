// Package sqlite implements the catalog repository on SQLite via the
// pure-Go modernc.org/sqlite driver.
//
// SQLite has no native TIMESTAMPTZ type, so created_at is stored as an
// RFC3339Nano string for reliable round-trip behavior and easy
// debugging.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"flatschema/internal/storage"
)

type Repo struct {
	db  *sql.DB
	now func() time.Time
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db, now: time.Now}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

const createSQL = `
CREATE TABLE IF NOT EXISTS schema_analyses (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    analysis_id  TEXT    NOT NULL,
    schema_name  TEXT    NOT NULL,
    source_kind  TEXT    NOT NULL,
    mode         TEXT    NOT NULL,
    fingerprint  TEXT    NOT NULL UNIQUE,
    field_count  INTEGER NOT NULL,
    array_count  INTEGER NOT NULL,
    elapsed_ms   INTEGER NOT NULL,
    schema_json  TEXT    NOT NULL,
    created_at   TEXT    NOT NULL
)`

func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createSQL)
	return err
}

// SaveResult relies on the UNIQUE fingerprint constraint: OR IGNORE
// makes re-saving the same schema shape a no-op.
func (r *Repo) SaveResult(ctx context.Context, rec storage.Record) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT OR IGNORE INTO schema_analyses
    (analysis_id, schema_name, source_kind, mode, fingerprint,
     field_count, array_count, elapsed_ms, schema_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.AnalysisID, rec.SchemaName, rec.SourceKind, rec.Mode, rec.Fingerprint,
		rec.FieldCount, rec.ArrayCount, rec.ElapsedMs, rec.SchemaJSON,
		r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repo) ListRecent(ctx context.Context, schemaName string, limit int) ([]storage.Record, error) {
	if limit <= 0 {
		limit = 20
	}

	q := `
SELECT id, analysis_id, schema_name, source_kind, mode, fingerprint,
       field_count, array_count, elapsed_ms, schema_json, created_at
FROM schema_analyses`
	args := []any{}
	if schemaName != "" {
		q += ` WHERE schema_name = ?`
		args = append(args, schemaName)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Record
	for rows.Next() {
		var rec storage.Record
		var createdAt string
		if err := rows.Scan(
			&rec.ID, &rec.AnalysisID, &rec.SchemaName, &rec.SourceKind, &rec.Mode,
			&rec.Fingerprint, &rec.FieldCount, &rec.ArrayCount, &rec.ElapsedMs,
			&rec.SchemaJSON, &createdAt,
		); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = ts
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ storage.Repository = (*Repo)(nil)
