package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// chatClient talks to any OpenAI-compatible /chat/completions endpoint.
type chatClient struct {
	name         string
	baseURL      string
	apiKey       string
	keyName      string
	defaultModel string
	client       *http.Client
}

func (c *chatClient) generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.defaultModel
	}
	info := ProviderInfo{Name: c.name, Model: model, Key: c.keyName}
	if c.apiKey == "" {
		return GenerateResponse{}, info, fmt.Errorf("%s key missing for alias %q", c.name, c.keyName)
	}
	payload, _ := json.Marshal(map[string]any{
		"model":       model,
		"messages":    req.Messages,
		"temperature": req.Temperature,
	})
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.baseURL, "/")+"/chat/completions", bytes.NewReader(payload))
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("%s generate request failed: %w", c.name, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return GenerateResponse{}, info, &HTTPError{Provider: c.name, Status: resp.StatusCode, RetryAfter: resp.Header.Get("Retry-After"), Body: string(body)}
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return GenerateResponse{}, info, fmt.Errorf("decode %s response: %w", c.name, err)
	}
	if len(parsed.Choices) == 0 {
		return GenerateResponse{}, info, fmt.Errorf("%s returned empty choices", c.name)
	}
	return GenerateResponse{Text: parsed.Choices[0].Message.Content}, info, nil
}

// Configured reports whether a credential is present.
func (c *chatClient) Configured() bool {
	return c.apiKey != ""
}
