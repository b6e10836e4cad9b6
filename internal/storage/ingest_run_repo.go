package storage

import (
	"context"
	"errors"
	"fmt"

	"medtutor/internal/models"

	"github.com/jackc/pgx/v5"
)

const (
	IngestStatusRunning   = "running"
	IngestStatusSucceeded = "succeeded"
	IngestStatusFailed    = "failed"
	IngestStatusSkipped   = "skipped"
)

type IngestRunRepo struct {
	db *DB
}

func NewIngestRunRepo(db *DB) *IngestRunRepo {
	return &IngestRunRepo{db: db}
}

func (r *IngestRunRepo) Upsert(ctx context.Context, run models.IngestRun) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO ingest_runs (topic, status, fail_reason, source_hash, pages, chunks, diagrams, videos)
VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), $5, $6, $7, $8)
ON CONFLICT (topic)
DO UPDATE SET
  status = EXCLUDED.status,
  fail_reason = EXCLUDED.fail_reason,
  source_hash = COALESCE(EXCLUDED.source_hash, ingest_runs.source_hash),
  pages = EXCLUDED.pages,
  chunks = EXCLUDED.chunks,
  diagrams = EXCLUDED.diagrams,
  videos = EXCLUDED.videos,
  updated_at = NOW()`,
		run.Topic, run.Status, run.FailReason, run.SourceHash, run.Pages, run.Chunks, run.Diagrams, run.Videos,
	)
	if err != nil {
		return fmt.Errorf("upsert ingest run: %w", err)
	}
	return nil
}

// SourceHash returns the hash recorded by the last successful run.
func (r *IngestRunRepo) SourceHash(ctx context.Context, topic string) (string, error) {
	var hash string
	err := r.db.Pool.QueryRow(ctx, `
SELECT COALESCE(source_hash,'') FROM ingest_runs WHERE topic=$1 AND status='succeeded'`, topic).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read source hash: %w", err)
	}
	return hash, nil
}

func (r *IngestRunRepo) List(ctx context.Context) ([]models.IngestRun, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT topic, status, COALESCE(fail_reason,''), COALESCE(source_hash,''), pages, chunks, diagrams, videos, updated_at
FROM ingest_runs
ORDER BY topic`)
	if err != nil {
		return nil, fmt.Errorf("list ingest runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.IngestRun, 0)
	for rows.Next() {
		var run models.IngestRun
		if err := rows.Scan(&run.Topic, &run.Status, &run.FailReason, &run.SourceHash, &run.Pages, &run.Chunks, &run.Diagrams, &run.Videos, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ingest run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingest runs: %w", err)
	}
	return out, nil
}
