package vector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PGConn interface {
	Queryer
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGIndex stores points in a pgvector table, one row per point, with the
// payload kept as jsonb so filters become a containment test.
type PGIndex struct {
	q          PGConn
	collection string
}

func NewPGIndex(q PGConn, collection string) *PGIndex {
	return &PGIndex{q: q, collection: collection}
}

func (s *PGIndex) EnsureCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid dimension %d", dim)
	}
	if _, err := s.q.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS content_points (
  id UUID PRIMARY KEY,
  collection TEXT NOT NULL,
  payload JSONB NOT NULL,
  embedding VECTOR(%d) NOT NULL
)`, dim)
	if _, err := s.q.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create content_points: %w", err)
	}
	if _, err := s.q.Exec(ctx, `CREATE INDEX IF NOT EXISTS content_points_payload_idx ON content_points USING GIN (payload)`); err != nil {
		return fmt.Errorf("create payload index: %w", err)
	}
	return nil
}

func (s *PGIndex) Upsert(ctx context.Context, points []Point) error {
	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("encode payload %s: %w", p.ID, err)
		}
		_, err = s.q.Exec(ctx, `
INSERT INTO content_points (id, collection, payload, embedding)
VALUES ($1, $2, $3::jsonb, $4::vector)
ON CONFLICT (id) DO UPDATE SET
  collection = EXCLUDED.collection,
  payload = EXCLUDED.payload,
  embedding = EXCLUDED.embedding`, p.ID, s.collection, string(payload), ToLiteral(p.Vector))
		if err != nil {
			return fmt.Errorf("upsert point %s: %w", p.ID, err)
		}
	}
	return nil
}

func (s *PGIndex) Search(ctx context.Context, vec []float32, filter Filter, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 5
	}
	if filter == nil {
		filter = Filter{}
	}
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	query := `
SELECT id::text,
       payload,
       1 - (embedding <=> $2::vector) AS score
FROM content_points
WHERE collection = $1
  AND payload @> $3::jsonb
ORDER BY embedding <=> $2::vector
LIMIT $4`

	rows, err := s.q.Query(ctx, query, s.collection, ToLiteral(vec), string(filterJSON), limit)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0, limit)
	for rows.Next() {
		var (
			h   Hit
			raw []byte
		)
		if err := rows.Scan(&h.ID, &raw, &h.Score); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		if err := json.Unmarshal(raw, &h.Payload); err != nil {
			return nil, fmt.Errorf("decode payload %s: %w", h.ID, err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return hits, nil
}
