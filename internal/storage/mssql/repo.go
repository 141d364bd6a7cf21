// Package mssql implements the catalog repository on Microsoft SQL
// Server over database/sql. Fingerprint dedupe uses an IF NOT EXISTS
// guard, matching how the other backends stay idempotent.
//
// Note on driver registration:
//   - This package intentionally does NOT blank-import a SQL Server
//     driver. The application must register the "sqlserver" driver
//     elsewhere (storage/all does this).
package mssql

import (
	"context"
	"database/sql"
	"time"

	"flatschema/internal/storage"
)

type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

const createSQL = `
IF NOT EXISTS (SELECT 1 FROM sys.tables WHERE name = 'schema_analyses')
CREATE TABLE schema_analyses (
    id           BIGINT IDENTITY(1,1) PRIMARY KEY,
    analysis_id  NVARCHAR(64)   NOT NULL,
    schema_name  NVARCHAR(256)  NOT NULL,
    source_kind  NVARCHAR(32)   NOT NULL,
    mode         NVARCHAR(32)   NOT NULL,
    fingerprint  NVARCHAR(64)   NOT NULL UNIQUE,
    field_count  INT            NOT NULL,
    array_count  INT            NOT NULL,
    elapsed_ms   BIGINT         NOT NULL,
    schema_json  NVARCHAR(MAX)  NOT NULL,
    created_at   DATETIMEOFFSET NOT NULL DEFAULT SYSDATETIMEOFFSET()
)`

func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createSQL)
	return err
}

// SaveResult guards the insert with a fingerprint existence check so
// reprocessing the same input never violates the unique constraint.
func (r *Repo) SaveResult(ctx context.Context, rec storage.Record) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
IF NOT EXISTS (SELECT 1 FROM schema_analyses WHERE fingerprint = @p5)
INSERT INTO schema_analyses
    (analysis_id, schema_name, source_kind, mode, fingerprint,
     field_count, array_count, elapsed_ms, schema_json)
VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9)`,
		rec.AnalysisID, rec.SchemaName, rec.SourceKind, rec.Mode, rec.Fingerprint,
		rec.FieldCount, rec.ArrayCount, rec.ElapsedMs, rec.SchemaJSON,
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
SELECT TOP (@p1) id, analysis_id, schema_name, source_kind, mode, fingerprint,
       field_count, array_count, elapsed_ms, schema_json, created_at
FROM schema_analyses`
	args := []any{limit}
	if schemaName != "" {
		q += ` WHERE schema_name = @p2`
		args = append(args, schemaName)
	}
	q += ` ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Record
	for rows.Next() {
		var rec storage.Record
		var createdAt time.Time
		if err := rows.Scan(
			&rec.ID, &rec.AnalysisID, &rec.SchemaName, &rec.SourceKind, &rec.Mode,
			&rec.Fingerprint, &rec.FieldCount, &rec.ArrayCount, &rec.ElapsedMs,
			&rec.SchemaJSON, &createdAt,
		); err != nil {
			return nil, err
		}
		rec.CreatedAt = createdAt
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ storage.Repository = (*Repo)(nil)
