// Package postgres implements the catalog repository on Postgres via
// pgx connection pools. Fingerprint dedupe uses ON CONFLICT DO NOTHING.
package postgres

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"flatschema/internal/storage"
)

type Repo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

const createSQL = `
CREATE TABLE IF NOT EXISTS schema_analyses (
    id           BIGSERIAL PRIMARY KEY,
    analysis_id  TEXT        NOT NULL,
    schema_name  TEXT        NOT NULL,
    source_kind  TEXT        NOT NULL,
    mode         TEXT        NOT NULL,
    fingerprint  TEXT        NOT NULL UNIQUE,
    field_count  INTEGER     NOT NULL,
    array_count  INTEGER     NOT NULL,
    elapsed_ms   BIGINT      NOT NULL,
    schema_json  TEXT        NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, createSQL)
	return err
}

// SaveResult is idempotent on fingerprint: a duplicate insert is a
// conflict that does nothing, reported as saved=false.
func (r *Repo) SaveResult(ctx context.Context, rec storage.Record) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
INSERT INTO schema_analyses
    (analysis_id, schema_name, source_kind, mode, fingerprint,
     field_count, array_count, elapsed_ms, schema_json)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (fingerprint) DO NOTHING`,
		rec.AnalysisID, rec.SchemaName, rec.SourceKind, rec.Mode, rec.Fingerprint,
		rec.FieldCount, rec.ArrayCount, rec.ElapsedMs, rec.SchemaJSON,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
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
		q += ` WHERE schema_name = $1`
		args = append(args, schemaName)
	}
	q += ` ORDER BY id DESC LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Record
	for rows.Next() {
		var rec storage.Record
		if err := rows.Scan(
			&rec.ID, &rec.AnalysisID, &rec.SchemaName, &rec.SourceKind, &rec.Mode,
			&rec.Fingerprint, &rec.FieldCount, &rec.ArrayCount, &rec.ElapsedMs,
			&rec.SchemaJSON, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ storage.Repository = (*Repo)(nil)
