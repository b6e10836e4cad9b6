package providers

import (
	"context"
	"net/http"
	"time"
)

// OpenRouterProvider is built per request from a caller-supplied key.
type OpenRouterProvider struct {
	chatClient
}

func NewOpenRouterProvider(apiKey, baseURL, defaultModel string) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if defaultModel == "" {
		defaultModel = "anthropic/claude-3-haiku"
	}
	return &OpenRouterProvider{chatClient: chatClient{
		name:         "openrouter",
		baseURL:      baseURL,
		apiKey:       apiKey,
		keyName:      "request",
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: 90 * time.Second},
	}}
}

func (o *OpenRouterProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	return o.generate(ctx, req)
}
