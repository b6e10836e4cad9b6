package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"medtutor/internal/providers"
	"medtutor/internal/util"
)

// Override carries a per-request provider credential.
type Override struct {
	APIKey string
	Model  string
}

func (o Override) Empty() bool {
	return strings.TrimSpace(o.APIKey) == ""
}

// ProviderError is a failure of a configured provider. It is never retried
// against a lower-priority candidate.
type ProviderError struct {
	Provider string
	Model    string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s (%s) failed: %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Candidate is one provider configuration in priority order.
type Candidate struct {
	Name     string
	Provider providers.LLMProvider
	Model    string
}

func (c Candidate) configured() bool {
	if c.Provider == nil {
		return false
	}
	if cfg, ok := c.Provider.(providers.Configurable); ok {
		return cfg.Configured()
	}
	return true
}

// Source builds the provider candidates for a request.
type Source interface {
	Candidates(o Override) []Candidate
}

// ManagerSource orders candidates as: caller key with caller model, caller
// key with the default OpenRouter model, then the baseline providers.
type ManagerSource struct {
	Manager   *providers.Manager
	ChatModel string
}

func (s ManagerSource) Candidates(o Override) []Candidate {
	var out []Candidate
	if !o.Empty() {
		or := s.Manager.OpenRouter(strings.TrimSpace(o.APIKey))
		if model := strings.TrimSpace(o.Model); model != "" {
			out = append(out, Candidate{Name: "openrouter", Provider: or, Model: model})
		} else {
			out = append(out, Candidate{Name: "openrouter", Provider: or, Model: s.Manager.OpenRouterDefaultModel()})
		}
	}
	for _, p := range s.Manager.LLMProviders() {
		model := ""
		if strings.EqualFold(p.Ref.Name, "openai") {
			model = s.ChatModel
		}
		out = append(out, Candidate{Name: p.Ref.Raw, Provider: p.Provider, Model: model})
	}
	return out
}

// Auditor records provider calls. It may be nil.
type Auditor interface {
	RecordLLMCall(ctx context.Context, rec CallRecord) error
}

// AuditorFunc adapts a function to Auditor.
type AuditorFunc func(ctx context.Context, rec CallRecord) error

func (f AuditorFunc) RecordLLMCall(ctx context.Context, rec CallRecord) error {
	return f(ctx, rec)
}

type CallRecord struct {
	Operation string
	Provider  string
	Model     string
	Status    string
	ErrorType string
}

// Call is a single completion request.
type Call struct {
	Operation   string
	Messages    []providers.ChatMessage
	Temperature float64
	Override    Override
}

type Synthesizer struct {
	source  Source
	auditor Auditor
	logger  *slog.Logger
}

type Options struct {
	Auditor Auditor
	Logger  *slog.Logger
}

func New(source Source, opts Options) *Synthesizer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Synthesizer{source: source, auditor: opts.Auditor, logger: opts.Logger}
}

// Complete sends the call to the first configured candidate. It returns
// util.ErrProviderNotConfigured when no candidate has credentials and a
// *ProviderError when the chosen provider fails.
func (s *Synthesizer) Complete(ctx context.Context, call Call) (string, error) {
	var chosen *Candidate
	for _, c := range s.source.Candidates(call.Override) {
		if c.configured() {
			chosen = &c
			break
		}
	}
	if chosen == nil {
		return "", fmt.Errorf("%s: %w", call.Operation, util.ErrProviderNotConfigured)
	}
	resp, info, err := chosen.Provider.Generate(ctx, providers.GenerateRequest{
		Operation:   call.Operation,
		Messages:    call.Messages,
		Model:       chosen.Model,
		Temperature: call.Temperature,
	})
	s.audit(ctx, call.Operation, chosen, info, err)
	if err != nil {
		s.logger.Error("llm call failed", "op", call.Operation, "provider", chosen.Name, "model", info.Model, "err", err)
		return "", &ProviderError{Provider: chosen.Name, Model: info.Model, Err: err}
	}
	return resp.Text, nil
}

func (s *Synthesizer) audit(ctx context.Context, op string, c *Candidate, info providers.ProviderInfo, err error) {
	if s.auditor == nil {
		return
	}
	rec := CallRecord{Operation: op, Provider: c.Name, Model: info.Model, Status: "ok"}
	if err != nil {
		rec.Status = "failed"
		rec.ErrorType = string(providers.ClassifyError(err))
	}
	if auditErr := s.auditor.RecordLLMCall(ctx, rec); auditErr != nil {
		s.logger.Warn("llm audit failed", "op", op, "err", auditErr)
	}
}

// IsNotConfigured reports whether err means no provider had credentials.
func IsNotConfigured(err error) bool {
	return errors.Is(err, util.ErrProviderNotConfigured)
}
