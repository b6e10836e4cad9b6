package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"medtutor/internal/models"
	"medtutor/internal/util"
	"medtutor/internal/vector"

	"github.com/google/uuid"
)

// Embedder is the part of the embedding gateway the store needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, operation string, inputs []string) ([][]float32, error)
}

const (
	DefaultPageSize  = 1200
	DefaultChunkSize = 250
	embedBatchSize   = 32
)

var pointNamespace = uuid.MustParse("6f1c29a4-5d0e-4f4b-9a53-0c6f3d2b8e71")

// Store is the hierarchical content store. Text, diagram and video
// records share one index and are told apart by payload fields.
type Store struct {
	index     vector.Index
	embedder  Embedder
	pageSize  int
	chunkSize int
	logger    *slog.Logger
}

type Options struct {
	PageSize  int
	ChunkSize int
	Logger    *slog.Logger
}

func NewStore(index vector.Index, embedder Embedder, opts Options) *Store {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{index: index, embedder: embedder, pageSize: opts.PageSize, chunkSize: opts.ChunkSize, logger: opts.Logger}
}

type IngestStats struct {
	Pages  int
	Chunks int
}

// IngestTopic embeds and stores the topic, page and chunk records for
// text. Any embedding or index failure aborts the topic.
func (s *Store) IngestTopic(ctx context.Context, topic, text string) (IngestStats, error) {
	if strings.TrimSpace(text) == "" {
		return IngestStats{}, fmt.Errorf("ingest %s: %w", topic, util.ErrNoExtractableText)
	}
	records := BuildRecords(topic, text, s.pageSize, s.chunkSize)
	for start := 0; start < len(records); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]
		inputs := make([]string, len(batch))
		for i, r := range batch {
			inputs[i] = r.Content
		}
		vecs, err := s.embedder.EmbedBatch(ctx, "ingest_content", inputs)
		if err != nil {
			return IngestStats{}, fmt.Errorf("ingest %s: %w", topic, err)
		}
		points := make([]vector.Point, len(batch))
		for i, r := range batch {
			points[i] = vector.Point{ID: recordID(r), Vector: vecs[i], Payload: recordPayload(r)}
		}
		if err := s.index.Upsert(ctx, points); err != nil {
			return IngestStats{}, fmt.Errorf("ingest %s: upsert: %w", topic, err)
		}
	}
	pages, chunks := CountLevels(records)
	s.logger.Info("topic content ingested", "topic", topic, "pages", pages, "chunks", chunks)
	return IngestStats{Pages: pages, Chunks: chunks}, nil
}

// SearchContent returns up to limit chunk-level hits, best first. Errors
// are logged and yield no hits.
func (s *Store) SearchContent(ctx context.Context, query, topic string, limit int) []models.SearchHit {
	filter := vector.Filter{"level": int(models.LevelChunk), "content_type": string(models.ContentText)}
	if topic != "" {
		filter["topic"] = topic
	}
	hits, ok := s.search(ctx, "search_content", query, filter, limit)
	if !ok {
		return nil
	}
	out := make([]models.SearchHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, models.SearchHit{
			Content:  payloadString(h.Payload, "content"),
			Topic:    payloadString(h.Payload, "topic"),
			Context:  payloadContext(h.Payload),
			Score:    h.Score,
			PageNum:  payloadInt(h.Payload, "page_num"),
			ChunkNum: payloadInt(h.Payload, "chunk_num"),
		})
	}
	return out
}

func (s *Store) AddDiagram(ctx context.Context, d models.DiagramRecord) error {
	vec, err := s.embedder.Embed(ctx, d.Description)
	if err != nil {
		return fmt.Errorf("embed diagram %s: %w", d.ImagePath, err)
	}
	p := vector.Point{
		ID:     pointID("diagram", d.Topic, d.ImagePath),
		Vector: vec,
		Payload: map[string]any{
			"image_path":   d.ImagePath,
			"description":  d.Description,
			"topic":        d.Topic,
			"diagram_type": d.DiagramType,
			"content_type": string(models.ContentDiagram),
		},
	}
	if err := s.index.Upsert(ctx, []vector.Point{p}); err != nil {
		return fmt.Errorf("upsert diagram %s: %w", d.ImagePath, err)
	}
	return nil
}

func (s *Store) SearchDiagrams(ctx context.Context, query, topic string, limit int) []models.DiagramHit {
	if limit <= 0 {
		limit = 1
	}
	filter := vector.Filter{"content_type": string(models.ContentDiagram)}
	if topic != "" {
		filter["topic"] = topic
	}
	hits, ok := s.search(ctx, "search_diagrams", query, filter, limit)
	if !ok {
		return nil
	}
	out := make([]models.DiagramHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, models.DiagramHit{
			DiagramRecord: models.DiagramRecord{
				ImagePath:   payloadString(h.Payload, "image_path"),
				Description: payloadString(h.Payload, "description"),
				Topic:       payloadString(h.Payload, "topic"),
				DiagramType: payloadString(h.Payload, "diagram_type"),
			},
			Score: h.Score,
		})
	}
	return out
}

// VideoEmbedText is the text embedded for a video record.
func VideoEmbedText(v models.VideoRecord) string {
	return fmt.Sprintf("%s %s video %s", v.Description, v.Topic, v.Language)
}

func (s *Store) AddVideo(ctx context.Context, v models.VideoRecord) error {
	vec, err := s.embedder.Embed(ctx, VideoEmbedText(v))
	if err != nil {
		return fmt.Errorf("embed video %s: %w", v.URL, err)
	}
	p := vector.Point{
		ID:     pointID("video", v.Topic, v.Language, v.URL),
		Vector: vec,
		Payload: map[string]any{
			"url":          v.URL,
			"description":  v.Description,
			"topic":        v.Topic,
			"language":     v.Language,
			"content_type": string(models.ContentVideo),
		},
	}
	if err := s.index.Upsert(ctx, []vector.Point{p}); err != nil {
		return fmt.Errorf("upsert video %s: %w", v.URL, err)
	}
	return nil
}

// SearchVideos filters on topic and language when they are non-empty.
func (s *Store) SearchVideos(ctx context.Context, query, topic, language string, limit int) []models.VideoHit {
	if limit <= 0 {
		limit = 2
	}
	filter := vector.Filter{"content_type": string(models.ContentVideo)}
	if topic != "" {
		filter["topic"] = topic
	}
	if language != "" {
		filter["language"] = language
	}
	hits, ok := s.search(ctx, "search_videos", query, filter, limit)
	if !ok {
		return nil
	}
	out := make([]models.VideoHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, models.VideoHit{
			VideoRecord: models.VideoRecord{
				URL:         payloadString(h.Payload, "url"),
				Description: payloadString(h.Payload, "description"),
				Topic:       payloadString(h.Payload, "topic"),
				Language:    payloadString(h.Payload, "language"),
			},
			RelevanceScore: h.Score,
		})
	}
	return out
}

func (s *Store) search(ctx context.Context, op, query string, filter vector.Filter, limit int) ([]vector.Hit, bool) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Error("embed query failed", "op", op, "err", err)
		return nil, false
	}
	hits, err := s.index.Search(ctx, vec, filter, limit)
	if err != nil {
		s.logger.Error("vector search failed", "op", op, "err", err)
		return nil, false
	}
	return hits, true
}

func recordID(r models.ContentRecord) string {
	page, chunk := -1, -1
	if r.PageNum != nil {
		page = *r.PageNum
	}
	if r.ChunkNum != nil {
		chunk = *r.ChunkNum
	}
	return pointID("text", r.Topic, fmt.Sprint(int(r.Level)), fmt.Sprint(page), fmt.Sprint(chunk))
}

// pointID derives a stable UUID so re-ingesting a topic overwrites its
// points instead of duplicating them.
func pointID(parts ...string) string {
	return uuid.NewSHA1(pointNamespace, []byte(strings.Join(parts, "\x00"))).String()
}

func recordPayload(r models.ContentRecord) map[string]any {
	p := map[string]any{
		"content":      r.Content,
		"topic":        r.Topic,
		"level":        int(r.Level),
		"content_type": string(models.ContentText),
	}
	if r.PageNum != nil {
		p["page_num"] = *r.PageNum
	}
	if r.ChunkNum != nil {
		p["chunk_num"] = *r.ChunkNum
	}
	if r.Context != nil {
		p["context"] = map[string]any{
			"previous_chunk": r.Context.PreviousChunk,
			"next_chunk":     r.Context.NextChunk,
		}
	}
	return p
}

func payloadString(p map[string]any, key string) string {
	s, _ := p[key].(string)
	return s
}

func payloadInt(p map[string]any, key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func payloadContext(p map[string]any) models.SiblingContext {
	switch c := p["context"].(type) {
	case map[string]any:
		return models.SiblingContext{
			PreviousChunk: payloadString(c, "previous_chunk"),
			NextChunk:     payloadString(c, "next_chunk"),
		}
	case models.SiblingContext:
		return c
	default:
		return models.SiblingContext{}
	}
}
