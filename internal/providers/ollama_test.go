package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveOllamaEmbedModel(t *testing.T) {
	t.Setenv("MEDTUTOR_OLLAMA_EMBED_MODEL", "")
	require.Equal(t, defaultOllamaEmbedModel, resolveOllamaEmbedModel(""))
	require.Equal(t, "mxbai-embed-large", resolveOllamaEmbedModel("mxbai-embed-large"))

	t.Setenv("MEDTUTOR_OLLAMA_EMBED_MODEL_LOCAL", "bge-m3")
	require.Equal(t, "bge-m3", resolveOllamaEmbedModel("local"))
}

func TestMatchDimension(t *testing.T) {
	src := []float32{1, 2, 3}
	require.Equal(t, []float32{1, 2}, matchDimension(src, 2))
	require.Equal(t, []float32{1, 2, 3, 0, 0}, matchDimension(src, 5))
	require.Equal(t, src, matchDimension(src, 0))
}

func TestOllamaEmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)
		var body struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		out := make([][]float32, len(body.Input))
		for i := range out {
			out[i] = []float32{float32(i), 1}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
	}))
	defer srv.Close()
	t.Setenv("MEDTUTOR_OLLAMA_BASE_URL", srv.URL)

	p := NewOllamaEmbeddingProvider("")
	vecs, info, err := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"a", "b"}, Dimension: 3})
	require.NoError(t, err)
	require.Equal(t, "ollama", info.Name)
	require.Equal(t, [][]float32{{0, 1, 0}, {1, 1, 0}}, vecs)
}

func TestOllamaEmbedServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "loading model", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	t.Setenv("MEDTUTOR_OLLAMA_BASE_URL", srv.URL)

	_, _, err := NewOllamaEmbeddingProvider("").Embed(context.Background(), EmbedRequest{Inputs: []string{"a"}})
	require.Error(t, err)
	require.True(t, Retryable(err))
}
