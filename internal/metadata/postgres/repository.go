// Package postgres provides the Postgres-backed metadata repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kbforge/harvester/internal/classify"
	"github.com/kbforge/harvester/internal/metadata"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for artifact rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Repository writes artifact rows into Postgres.
type Repository struct {
	pool  db
	table string
}

var _ metadata.Repository = (*Repository)(nil)

// NewRepository connects a pgx pool using the provided config and pings it
// so misconfiguration fails at startup rather than mid-crawl.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("metadata.postgres.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "artifacts"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Repository{pool: pool, table: table}, nil
}

// NewRepositoryWithPool constructs a Repository from an existing pool
// (primarily for testing with pgxmock).
func NewRepositoryWithPool(pool db, table string) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "artifacts"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Repository{pool: pool, table: table}, nil
}

// Migrate creates the artifacts table and its indexes if missing.
func (r *Repository) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	element_id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL,
	url TEXT NOT NULL,
	type TEXT NOT NULL,
	depth INT NOT NULL DEFAULT 0,
	raw_content_path TEXT NOT NULL,
	processed_content_path TEXT,
	checksum TEXT NOT NULL,
	parent_id TEXT REFERENCES %s(element_id),
	fetched_at TIMESTAMPTZ NOT NULL
)`, r.table, r.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_job_id_idx ON %s (job_id)`, r.table, r.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_checksum_idx ON %s (checksum)`, r.table, r.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_parent_id_idx ON %s (parent_id)`, r.table, r.table),
	}
	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", r.table, err)
		}
	}
	return nil
}

// Upsert inserts or replaces an artifact row as one atomic statement.
func (r *Repository) Upsert(ctx context.Context, record metadata.ArtifactRecord) error {
	if record.ElementID == "" {
		return fmt.Errorf("element id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	element_id,
	job_id,
	url,
	type,
	depth,
	raw_content_path,
	processed_content_path,
	checksum,
	parent_id,
	fetched_at
) VALUES (
	$1,$2,$3,$4,$5,$6,NULLIF($7,''),$8,NULLIF($9,''),$10
)
ON CONFLICT (element_id) DO UPDATE SET
	url = EXCLUDED.url,
	type = EXCLUDED.type,
	depth = EXCLUDED.depth,
	raw_content_path = EXCLUDED.raw_content_path,
	processed_content_path = EXCLUDED.processed_content_path,
	checksum = EXCLUDED.checksum,
	parent_id = EXCLUDED.parent_id,
	fetched_at = EXCLUDED.fetched_at`, r.table)

	args := []any{
		record.ElementID,
		record.JobID,
		record.URL,
		string(record.Type),
		record.Depth,
		record.RawContentPath,
		record.ProcessedContentPath,
		record.Checksum,
		record.ParentID,
		record.FetchedAt,
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert artifact: %w", err)
	}
	return nil
}

const selectColumns = `element_id, job_id, url, type, depth, raw_content_path,
	COALESCE(processed_content_path, ''), checksum, COALESCE(parent_id, ''), fetched_at`

// Get fetches one row by element id.
func (r *Repository) Get(ctx context.Context, elementID string) (metadata.ArtifactRecord, bool, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE element_id = $1`, selectColumns, r.table)
	record, err := scanRecord(r.pool.QueryRow(ctx, query, elementID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return metadata.ArtifactRecord{}, false, nil
		}
		return metadata.ArtifactRecord{}, false, fmt.Errorf("get artifact: %w", err)
	}
	return record, true, nil
}

// Exists reports whether a row exists for the element id.
func (r *Repository) Exists(ctx context.Context, elementID string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE element_id = $1)`, r.table)
	var exists bool
	if err := r.pool.QueryRow(ctx, query, elementID).Scan(&exists); err != nil {
		return false, fmt.Errorf("artifact exists: %w", err)
	}
	return exists, nil
}

// SetProcessedPath updates the processed-content pointer on an existing row.
func (r *Repository) SetProcessedPath(ctx context.Context, elementID, processedPath string) error {
	query := fmt.Sprintf(`UPDATE %s SET processed_content_path = $2 WHERE element_id = $1`, r.table)
	tag, err := r.pool.Exec(ctx, query, elementID, processedPath)
	if err != nil {
		return fmt.Errorf("set processed path: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return metadata.ErrNotFound
	}
	return nil
}

// ListByJob returns all rows for a job, oldest first.
func (r *Repository) ListByJob(ctx context.Context, jobID string) ([]metadata.ArtifactRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE job_id = $1 ORDER BY fetched_at`, selectColumns, r.table)
	return r.list(ctx, query, jobID)
}

// ListChildren returns all rows embedded by the given parent.
func (r *Repository) ListChildren(ctx context.Context, parentID string) ([]metadata.ArtifactRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE parent_id = $1 ORDER BY fetched_at`, selectColumns, r.table)
	return r.list(ctx, query, parentID)
}

// Close releases the underlying pool resources.
func (r *Repository) Close() error {
	if r == nil || r.pool == nil {
		return nil
	}
	r.pool.Close()
	return nil
}

func (r *Repository) list(ctx context.Context, query string, arg any) ([]metadata.ArtifactRecord, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []metadata.ArtifactRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (metadata.ArtifactRecord, error) {
	var record metadata.ArtifactRecord
	var kind string
	err := row.Scan(
		&record.ElementID,
		&record.JobID,
		&record.URL,
		&kind,
		&record.Depth,
		&record.RawContentPath,
		&record.ProcessedContentPath,
		&record.Checksum,
		&record.ParentID,
		&record.FetchedAt,
	)
	if err != nil {
		return metadata.ArtifactRecord{}, err
	}
	record.Type = classify.Kind(kind)
	return record, nil
}
