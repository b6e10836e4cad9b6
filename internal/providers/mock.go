package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
)

// MockProvider is a deterministic offline provider. Its Generate output
// follows the JSON contracts of each operation so the full pipeline runs
// without network access.
type MockProvider struct {
	dim    int
	labels []string
}

func NewMockProvider(dim int, labels ...string) *MockProvider {
	if dim <= 0 {
		dim = 3072
	}
	return &MockProvider{dim: dim, labels: labels}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, deterministicVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim), Key: "mock"}, nil
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}
	last := ""
	if n := len(req.Messages); n > 0 {
		last = req.Messages[n-1].Content
	}
	var text string
	switch req.Operation {
	case "extract_topic", "extract_topic_history":
		topic := m.findLabel(last)
		if topic == "" {
			topic = "none"
		}
		text = mustJSON(map[string]any{"topic": topic, "invalid": false, "confidence": boolScore(topic != "none")})
	case "classify_intent":
		text = mustJSON(map[string]any{"intent": mockIntent(last), "confidence": 0.9})
	case "generate_mcq":
		text = mustJSON(map[string]any{
			"question":       "Which statement best matches the provided context?",
			"options":        []string{"A) First", "B) Second", "C) Third", "D) Fourth", "E) Fifth"},
			"correct_answer": "A",
			"explanation":    "Deterministic mock explanation.",
		})
	case "summarize_for_diagram":
		words := strings.Fields(last)
		if len(words) > 50 {
			words = words[:50]
		}
		text = strings.Join(words, " ")
	default:
		text = "Mock response."
	}
	return GenerateResponse{Text: text}, info, nil
}

func (m *MockProvider) findLabel(s string) string {
	low := strings.ToLower(s)
	for _, l := range m.labels {
		if strings.Contains(low, l) {
			return l
		}
	}
	return ""
}

func mockIntent(s string) string {
	low := strings.ToLower(s)
	switch {
	case strings.Contains(low, "mcq"), strings.Contains(low, "quiz"):
		return "mcq"
	case strings.Contains(low, "video"):
		return "video"
	case strings.Contains(low, "diagram"):
		return "diagram"
	default:
		return "none"
	}
}

func boolScore(b bool) float64 {
	if b {
		return 0.9
	}
	return 0
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251)))
		u := binary.BigEndian.Uint32(h[:4])
		v := float32(u%2000)/1000.0 - 1.0
		vec[i] = v
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / (float64(sum) + 1e-9))
	for i := range v {
		v[i] *= inv
	}
	return v
}
