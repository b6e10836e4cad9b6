package providers

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"
)

// GroqProvider supports chat generation via Groq's OpenAI-compatible API.
type GroqProvider struct {
	chatClient
}

func NewGroqProvider(keyName string) *GroqProvider {
	model := os.Getenv("MEDTUTOR_GROQ_MODEL")
	if strings.TrimSpace(model) == "" {
		model = "llama-3.1-8b-instant"
	}
	return &GroqProvider{chatClient: chatClient{
		name:         "groq",
		baseURL:      "https://api.groq.com/openai/v1",
		apiKey:       resolveGroqKey(keyName),
		keyName:      keyName,
		defaultModel: model,
		client:       &http.Client{Timeout: 60 * time.Second},
	}}
}

func (g *GroqProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	return g.generate(ctx, req)
}

func resolveGroqKey(alias string) string {
	if alias != "" {
		if v := os.Getenv("MEDTUTOR_GROQ_KEY_" + strings.ToUpper(alias)); v != "" {
			return v
		}
	}
	return os.Getenv("GROQ_API_KEY")
}
