package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultOllamaEmbedModel = "nomic-embed-text"

// OllamaEmbeddingProvider embeds through a local Ollama server. Vectors are
// padded or cut to the collection dimension.
type OllamaEmbeddingProvider struct {
	alias   string
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaEmbeddingProvider(alias string) *OllamaEmbeddingProvider {
	baseURL := strings.TrimSpace(os.Getenv("MEDTUTOR_OLLAMA_BASE_URL"))
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaEmbeddingProvider{
		alias:   alias,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   resolveOllamaEmbedModel(alias),
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// Embed sends all inputs in one /api/embed call.
func (o *OllamaEmbeddingProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "ollama", Model: o.model, Key: o.alias}
	if len(req.Inputs) == 0 {
		return nil, info, fmt.Errorf("no embedding inputs")
	}
	payload, err := json.Marshal(map[string]any{"model": o.model, "input": req.Inputs})
	if err != nil {
		return nil, info, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, info, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, info, fmt.Errorf("ollama embed request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, info, &HTTPError{Provider: "ollama", Status: resp.StatusCode, Body: string(body)}
	}
	var parsed struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, info, fmt.Errorf("decode ollama embed response: %w", err)
	}
	if len(parsed.Embeddings) != len(req.Inputs) {
		return nil, info, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(parsed.Embeddings), len(req.Inputs))
	}
	out := make([][]float32, len(parsed.Embeddings))
	for i, v := range parsed.Embeddings {
		out[i] = matchDimension(v, req.Dimension)
	}
	return out, info, nil
}

// resolveOllamaEmbedModel maps a provider alias to a model name. An alias
// that already looks like a model tag is used as is.
func resolveOllamaEmbedModel(alias string) string {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		if v := strings.TrimSpace(os.Getenv("MEDTUTOR_OLLAMA_EMBED_MODEL")); v != "" {
			return v
		}
		return defaultOllamaEmbedModel
	}
	if v := strings.TrimSpace(os.Getenv("MEDTUTOR_OLLAMA_EMBED_MODEL_" + envToken(alias))); v != "" {
		return v
	}
	if strings.ContainsAny(alias, "-/.:") {
		return alias
	}
	return defaultOllamaEmbedModel
}

func envToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}

func matchDimension(v []float32, target int) []float32 {
	switch {
	case target <= 0 || len(v) == target:
		return v
	case len(v) > target:
		return v[:target]
	default:
		out := make([]float32, target)
		copy(out, v)
		return out
	}
}
