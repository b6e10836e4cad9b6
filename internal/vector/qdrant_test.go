package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQdrantSearchSendsFilter(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/medical_content/points/search", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"result":[{"id":"p1","score":0.9,"payload":{"content":"x","level":3}}]}`))
	}))
	defer srv.Close()

	idx := NewQdrantIndex(QdrantConfig{URL: srv.URL, APIKey: "secret", Collection: "medical_content"})
	hits, err := idx.Search(context.Background(), []float32{0.1, 0.2}, Filter{"level": 3, "topic": "tuberculosis"}, 4)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "p1", hits[0].ID)
	require.InDelta(t, 0.9, hits[0].Score, 1e-9)

	filter := got["filter"].(map[string]any)
	must := filter["must"].([]any)
	require.Len(t, must, 2)
	first := must[0].(map[string]any)
	require.Equal(t, "level", first["key"])
	require.Equal(t, float64(4), got["limit"])
}

func TestQdrantEnsureCollectionSkipsExisting(t *testing.T) {
	puts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			puts++
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":{}}`))
	}))
	defer srv.Close()

	idx := NewQdrantIndex(QdrantConfig{URL: srv.URL, Collection: "c"})
	require.NoError(t, idx.EnsureCollection(context.Background(), 8))
	require.Equal(t, 0, puts)
}

func TestQdrantEnsureCollectionCreatesMissing(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"result":true}`))
	}))
	defer srv.Close()

	idx := NewQdrantIndex(QdrantConfig{URL: srv.URL, Collection: "c"})
	require.NoError(t, idx.EnsureCollection(context.Background(), 8))
	require.Equal(t, "/collections/c", paths[0])
	require.Len(t, paths, 1+len(payloadIndexes))
}
