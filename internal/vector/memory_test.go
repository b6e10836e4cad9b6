package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryIndexFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.EnsureCollection(ctx, 2))
	require.NoError(t, idx.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1, 0}, Payload: map[string]any{"level": 3, "topic": "tuberculosis"}},
		{ID: "b", Vector: []float32{0.7, 0.7}, Payload: map[string]any{"level": 3, "topic": "tuberculosis"}},
		{ID: "c", Vector: []float32{1, 0}, Payload: map[string]any{"level": 2, "topic": "tuberculosis"}},
		{ID: "d", Vector: []float32{1, 0}, Payload: map[string]any{"level": 3, "topic": "colorectal_cancer"}},
	}))

	hits, err := idx.Search(ctx, []float32{1, 0}, Filter{"level": float64(3), "topic": "tuberculosis"}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "a", hits[0].ID)
	require.Equal(t, "b", hits[1].ID)
	require.Greater(t, hits[0].Score, hits[1].Score)
}

func TestMemoryIndexUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Upsert(ctx, []Point{{ID: "a", Vector: []float32{1}, Payload: map[string]any{"v": 1}}}))
	require.NoError(t, idx.Upsert(ctx, []Point{{ID: "a", Vector: []float32{1}, Payload: map[string]any{"v": 2}}}))
	require.Equal(t, 1, idx.Len())
	hits, err := idx.Search(ctx, []float32{1}, nil, 1)
	require.NoError(t, err)
	require.Equal(t, 2, hits[0].Payload["v"])
}

func TestMemoryIndexRejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.EnsureCollection(ctx, 3))
	require.Error(t, idx.Upsert(ctx, []Point{{ID: "a", Vector: []float32{1}}}))
}
