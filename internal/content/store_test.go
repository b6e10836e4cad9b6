package content

import (
	"context"
	"errors"
	"testing"

	"medtutor/internal/models"
	"medtutor/internal/providers"
	"medtutor/internal/vector"

	"github.com/stretchr/testify/require"
)

type mockEmbedder struct {
	p   *providers.MockProvider
	err error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, "embed", []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, op string, inputs []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	vecs, _, err := m.p.Embed(ctx, providers.EmbedRequest{Operation: op, Inputs: inputs})
	return vecs, err
}

func newTestStore(t *testing.T) (*Store, *vector.MemoryIndex, *mockEmbedder) {
	t.Helper()
	idx := vector.NewMemoryIndex()
	emb := &mockEmbedder{p: providers.NewMockProvider(32)}
	require.NoError(t, idx.EnsureCollection(context.Background(), 32))
	return NewStore(idx, emb, Options{PageSize: 20, ChunkSize: 5}), idx, emb
}

func TestSearchContentOnlyReturnsChunks(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	_, err := s.IngestTopic(ctx, "tuberculosis", words(40))
	require.NoError(t, err)
	_, err = s.IngestTopic(ctx, "colorectal_cancer", words(15))
	require.NoError(t, err)
	require.NoError(t, s.AddDiagram(ctx, models.DiagramRecord{ImagePath: "/diagrams/tuberculosis/Fig 1.png", Description: "w1 w2", Topic: "tuberculosis", DiagramType: "fig"}))

	hits := s.SearchContent(ctx, "tuberculosis", "", 100)
	require.Len(t, hits, 8+3)
	for i, h := range hits {
		require.NotEmpty(t, h.Content)
		if i > 0 {
			require.GreaterOrEqual(t, hits[i-1].Score, h.Score)
		}
	}

	tb := s.SearchContent(ctx, "w3", "tuberculosis", 100)
	require.Len(t, tb, 8)
	for _, h := range tb {
		require.Equal(t, "tuberculosis", h.Topic)
	}
}

func TestSearchContentSkipsNonTextPoints(t *testing.T) {
	ctx := context.Background()
	s, idx, emb := newTestStore(t)
	_, err := s.IngestTopic(ctx, "tuberculosis", words(10))
	require.NoError(t, err)
	vec, err := emb.Embed(ctx, "w1 w2")
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(ctx, []vector.Point{{
		ID:      "stray",
		Vector:  vec,
		Payload: map[string]any{"content": "caption", "topic": "tuberculosis", "level": 3, "content_type": string(models.ContentDiagram)},
	}}))

	hits := s.SearchContent(ctx, "w1 w2", "tuberculosis", 100)
	require.Len(t, hits, 2)
	for _, h := range hits {
		require.NotEqual(t, "caption", h.Content)
	}
}

func TestSearchContentDegradesToEmptyOnEmbedFailure(t *testing.T) {
	s, _, emb := newTestStore(t)
	emb.err = errors.New("upstream down")
	require.Empty(t, s.SearchContent(context.Background(), "anything", "", 3))
}

func TestIngestTopicFailsOnEmbedError(t *testing.T) {
	s, idx, emb := newTestStore(t)
	emb.err = errors.New("quota exceeded")
	_, err := s.IngestTopic(context.Background(), "tuberculosis", words(10))
	require.Error(t, err)
	require.Equal(t, 0, idx.Len())
}

func TestIngestTopicIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, idx, _ := newTestStore(t)
	stats, err := s.IngestTopic(ctx, "tuberculosis", words(40))
	require.NoError(t, err)
	require.Equal(t, IngestStats{Pages: 2, Chunks: 8}, stats)
	n := idx.Len()
	_, err = s.IngestTopic(ctx, "tuberculosis", words(40))
	require.NoError(t, err)
	require.Equal(t, n, idx.Len())
}

func TestSearchVideosFiltersLanguage(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	require.NoError(t, s.AddVideo(ctx, models.VideoRecord{URL: "https://e/1", Description: "intro", Topic: "tuberculosis", Language: "english"}))
	require.NoError(t, s.AddVideo(ctx, models.VideoRecord{URL: "https://u/1", Description: "intro", Topic: "tuberculosis", Language: "urdu"}))

	hits := s.SearchVideos(ctx, "intro", "tuberculosis", "urdu", 5)
	require.Len(t, hits, 1)
	require.Equal(t, "https://u/1", hits[0].URL)

	both := s.SearchVideos(ctx, "intro", "tuberculosis", "", 0)
	require.Len(t, both, 2)
}

func TestVideoEmbedText(t *testing.T) {
	got := VideoEmbedText(models.VideoRecord{Description: "cough basics", Topic: "tuberculosis", Language: "english"})
	require.Equal(t, "cough basics tuberculosis video english", got)
}
