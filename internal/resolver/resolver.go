package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"medtutor/internal/models"
	"medtutor/internal/providers"
	"medtutor/internal/synth"
	"medtutor/internal/topics"
	"medtutor/internal/util"
)

const (
	OpExtractTopic        = "extract_topic"
	OpExtractTopicHistory = "extract_topic_history"

	historyTurns = 2
	turnWords    = 50
)

type Completer interface {
	Complete(ctx context.Context, call synth.Call) (string, error)
}

// Resolver decides which catalog topic a conversation is about.
type Resolver struct {
	llm     Completer
	catalog *topics.Catalog
	logger  *slog.Logger
}

func New(llm Completer, catalog *topics.Catalog, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{llm: llm, catalog: catalog, logger: logger}
}

// Resolve runs the direct pass on a non-blank utterance and falls back to
// history only when the utterance named no topic at all. An utterance that
// names an unknown topic stops resolution without looking at history.
func (r *Resolver) Resolve(ctx context.Context, utterance string, history []models.Message, hasSession bool, o synth.Override) models.TopicResolution {
	if strings.TrimSpace(utterance) == "" {
		return r.ExtractFromHistory(ctx, history, hasSession, o)
	}
	direct := r.ExtractFromQuery(ctx, utterance, o)
	switch {
	case !direct.Success:
		return direct
	case direct.Topic != "":
		return direct
	case direct.ExplicitInvalid:
		return models.TopicResolution{
			Success:         true,
			ExplicitInvalid: true,
			Message:         "User explicitly mentioned an unrecognized topic, skipping fallback",
		}
	default:
		return r.ExtractFromHistory(ctx, history, hasSession, o)
	}
}

func (r *Resolver) queryPrompt() string {
	return fmt.Sprintf(`You classify which medical topic a user message is about.
Valid topics: %s.
Reply with JSON only: {"topic": "<one valid topic exactly as written above, or none>", "invalid": <true|false>}.
If the message clearly names exactly one valid topic, return it with "invalid": false.
If the message names a medical subject that is not in the valid list, return "none" with "invalid": true.
If the message names no subject at all, return "none" with "invalid": false.`, strings.Join(r.catalog.Labels(), ", "))
}

// ExtractFromQuery classifies a single utterance. Only an exact label match
// resolves a topic.
func (r *Resolver) ExtractFromQuery(ctx context.Context, utterance string, o synth.Override) models.TopicResolution {
	text, err := r.llm.Complete(ctx, synth.Call{
		Operation: OpExtractTopic,
		Messages: []providers.ChatMessage{
			{Role: "system", Content: r.queryPrompt()},
			{Role: "user", Content: utterance},
		},
		Temperature: 0.1,
		Override:    o,
	})
	if err != nil {
		r.logger.Error("extract topic from query failed", "err", err)
		return models.TopicResolution{Message: err.Error()}
	}
	var out struct {
		Topic   string `json:"topic"`
		Invalid bool   `json:"invalid"`
	}
	if err := synth.DecodeJSON(text, &out); err != nil {
		r.logger.Warn("extract topic output malformed", "raw", util.DisplaySnippet(text, 200))
		return models.TopicResolution{Message: err.Error()}
	}
	if t, ok := r.catalog.MatchExact(out.Topic); ok {
		return models.TopicResolution{Success: true, Topic: t.Key, Confidence: 1.0}
	}
	return models.TopicResolution{Success: true, ExplicitInvalid: out.Invalid}
}

const historyPrompt = `You determine which medical topic a conversation is about.
Valid topics: %s.
Reply with JSON only: {"topic": "<valid topic or none>", "confidence": <number between 0 and 1>}.`

// HistoryPrompt renders the last two turns, each cut to fifty words, as
// the previous and latest message.
func HistoryPrompt(history []models.Message) string {
	start := len(history) - historyTurns
	if start < 0 {
		start = 0
	}
	turns := make([]string, 0, historyTurns)
	for _, m := range history[start:] {
		turns = append(turns, util.TruncateWords(m.Content, turnWords))
	}
	previous := ""
	if len(turns) > 1 {
		previous = turns[0]
	}
	latest := ""
	if len(turns) > 0 {
		latest = turns[len(turns)-1]
	}
	return fmt.Sprintf("Chat context:\nPrevious message: %s\nLatest message: %s\n\nDetermine the topic being discussed, prioritizing the topic from the latest message.", previous, latest)
}

// ExtractFromHistory resolves a topic from the last two turns. The model's
// label is matched loosely: it must contain a catalog label.
func (r *Resolver) ExtractFromHistory(ctx context.Context, history []models.Message, hasSession bool, o synth.Override) models.TopicResolution {
	if !hasSession || len(history) == 0 {
		return models.TopicResolution{Message: "No chat history found", Err: util.ErrNoHistory}
	}
	text, err := r.llm.Complete(ctx, synth.Call{
		Operation: OpExtractTopicHistory,
		Messages: []providers.ChatMessage{
			{Role: "system", Content: fmt.Sprintf(historyPrompt, strings.Join(r.catalog.Labels(), ", "))},
			{Role: "user", Content: HistoryPrompt(history)},
		},
		Temperature: 0.1,
		Override:    o,
	})
	if err != nil {
		r.logger.Error("extract topic from history failed", "err", err)
		return models.TopicResolution{Message: err.Error()}
	}
	var out struct {
		Topic      *string         `json:"topic"`
		Confidence json.RawMessage `json:"confidence"`
	}
	if err := synth.DecodeJSON(text, &out); err != nil {
		return models.TopicResolution{Message: "Failed to parse topic analysis"}
	}
	confidence, err := synth.ParseConfidence(out.Confidence)
	if err != nil {
		return models.TopicResolution{Message: "Failed to parse topic analysis"}
	}
	raw := "none"
	if out.Topic != nil {
		raw = *out.Topic
	}
	res := models.TopicResolution{Success: true, Confidence: confidence}
	if t, ok := r.catalog.MatchContains(strings.ToLower(raw)); ok {
		res.Topic = t.Key
	}
	return res
}
