package providers

import (
	"context"
	"encoding/json"
	"testing"

	"medtutor/internal/config"

	"github.com/stretchr/testify/require"
)

func TestManagerOrdersMockLast(t *testing.T) {
	cfg := config.Config{LLMProviders: "mock|groq:a", EmbedProviders: "mock|openai", EmbedDim: 8}
	m, err := NewManager(cfg, nil)
	require.NoError(t, err)
	llms := m.LLMProviders()
	require.Len(t, llms, 2)
	require.Equal(t, "groq", llms[0].Ref.Name)
	require.Equal(t, "mock", llms[1].Ref.Name)
	embeds := m.EmbedProviders()
	require.Equal(t, "openai", embeds[0].Ref.Name)
}

func TestManagerRejectsEmbedOnlyProviderForLLM(t *testing.T) {
	_, err := NewManager(config.Config{LLMProviders: "ollama", EmbedProviders: "mock"}, nil)
	require.Error(t, err)
}

func TestManagerUnknownProvider(t *testing.T) {
	_, err := NewManager(config.Config{LLMProviders: "nope", EmbedProviders: "mock"}, nil)
	require.Error(t, err)
}

func TestMockProviderTopicExtraction(t *testing.T) {
	p := NewMockProvider(4, "tuberculosis", "turner syndrome")
	resp, _, err := p.Generate(context.Background(), GenerateRequest{
		Operation: "extract_topic",
		Messages:  []ChatMessage{{Role: "user", Content: "Tell me about Turner Syndrome"}},
	})
	require.NoError(t, err)
	var out struct {
		Topic string `json:"topic"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Text), &out))
	require.Equal(t, "turner syndrome", out.Topic)
}

func TestMockEmbedDeterministic(t *testing.T) {
	p := NewMockProvider(16)
	a, _, err := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"x", "x"}})
	require.NoError(t, err)
	require.Equal(t, a[0], a[1])
	require.Len(t, a[0], 16)
}
