package providers

import (
	"fmt"
	"strings"

	"medtutor/internal/config"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

type NamedEmbedProvider struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

type Manager struct {
	llmProviders      []NamedLLMProvider
	embedProviders    []NamedEmbedProvider
	openRouterBaseURL string
	openRouterModel   string
}

// NewManager builds the baseline provider lists. labels seed the mock
// provider so offline runs can still recognise topics.
func NewManager(cfg config.Config, labels []string) (*Manager, error) {
	m := &Manager{
		openRouterBaseURL: cfg.OpenRouterBaseURL,
		openRouterModel:   cfg.OpenRouterModel,
	}
	for _, ref := range ParseProviderList(cfg.LLMProviders) {
		p, err := buildProvider(ref, cfg.EmbedDim, labels)
		if err != nil {
			return nil, err
		}
		llm, ok := p.(LLMProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support llm", ref.Raw)
		}
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ref, Provider: llm})
	}
	for _, ref := range ParseProviderList(cfg.EmbedProviders) {
		p, err := buildProvider(ref, cfg.EmbedDim, labels)
		if err != nil {
			return nil, err
		}
		embed, ok := p.(EmbeddingProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support embeddings", ref.Raw)
		}
		m.embedProviders = append(m.embedProviders, NamedEmbedProvider{Ref: ref, Provider: embed})
	}
	return m, nil
}

// OpenRouter returns a provider bound to a caller-supplied key.
func (m *Manager) OpenRouter(apiKey string) *OpenRouterProvider {
	return NewOpenRouterProvider(apiKey, m.openRouterBaseURL, m.openRouterModel)
}

func (m *Manager) OpenRouterDefaultModel() string {
	if m.openRouterModel == "" {
		return "anthropic/claude-3-haiku"
	}
	return m.openRouterModel
}

// LLMProviders returns the baseline chain, real providers before mock.
func (m *Manager) LLMProviders() []NamedLLMProvider {
	order := preferredOrder(len(m.llmProviders), func(i int) string { return strings.ToLower(m.llmProviders[i].Ref.Name) })
	out := make([]NamedLLMProvider, 0, len(order))
	for _, i := range order {
		out = append(out, m.llmProviders[i])
	}
	return out
}

// EmbedProviders returns embedding providers, real providers before mock.
func (m *Manager) EmbedProviders() []NamedEmbedProvider {
	order := preferredOrder(len(m.embedProviders), func(i int) string { return strings.ToLower(m.embedProviders[i].Ref.Name) })
	out := make([]NamedEmbedProvider, 0, len(order))
	for _, i := range order {
		out = append(out, m.embedProviders[i])
	}
	return out
}

func (m *Manager) EmbedCount() int {
	return len(m.embedProviders)
}

func (m *Manager) LLMCount() int {
	return len(m.llmProviders)
}

func preferredOrder(n int, nameAt func(i int) string) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if nameAt(i) != "mock" {
			out = append(out, i)
		}
	}
	for i := 0; i < n; i++ {
		if nameAt(i) == "mock" {
			out = append(out, i)
		}
	}
	return out
}

func buildProvider(ref ProviderRef, dim int, labels []string) (any, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(dim, labels...), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "ollama":
		return NewOllamaEmbeddingProvider(ref.KeyAlias), nil
	case "groq":
		return NewGroqProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
