package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"medtutor/internal/models"
	"medtutor/internal/providers"
	"medtutor/internal/util"
)

const (
	OpChatResponse = "chat_response"
	OpClassify     = "classify_intent"
	OpGenerateMCQ  = "generate_mcq"
	OpSummarize    = "summarize_for_diagram"

	responseTemperature = 0.3
	classifyTemperature = 0.1
	summaryTemperature  = 0.2
)

type IntentKind string

const (
	IntentMCQ     IntentKind = "mcq"
	IntentVideo   IntentKind = "video"
	IntentDiagram IntentKind = "diagram"
	IntentNone    IntentKind = "none"
)

type Intent struct {
	Kind       IntentKind
	Confidence float64
	OK         bool
}

// Actionable reports whether the intent should be dispatched.
func (i Intent) Actionable(threshold float64) bool {
	return i.OK && i.Kind != IntentNone && i.Confidence > threshold
}

// Respond produces the assistant reply for a composed conversation.
func (s *Synthesizer) Respond(ctx context.Context, msgs []providers.ChatMessage, o Override) (string, error) {
	return s.Complete(ctx, Call{Operation: OpChatResponse, Messages: msgs, Temperature: responseTemperature, Override: o})
}

const classifyPrompt = `Analyze the user message and determine if they are requesting any of these:
1. Multiple Choice Question (MCQ)
2. Video
3. Diagram

Return response in EXACT format:
{"intent": "mcq/video/diagram/none", "confidence": confidence_score_between_0_and_1}

Examples of intents:
MCQ: "Give me a practice question", "Can I have an MCQ", "Quiz me about this"
Video: "Show me a video", "Is there a video about this"
Diagram: "Show me a diagram", "Is there a picture explaining this"

Return "none" if no clear intent is detected.`

// ClassifyIntent fails closed: any error or malformed output yields none.
func (s *Synthesizer) ClassifyIntent(ctx context.Context, message string, o Override) Intent {
	text, err := s.Complete(ctx, Call{
		Operation: OpClassify,
		Messages: []providers.ChatMessage{
			{Role: "system", Content: classifyPrompt},
			{Role: "user", Content: "User message: " + message},
		},
		Temperature: classifyTemperature,
		Override:    o,
	})
	if err != nil {
		return Intent{Kind: IntentNone}
	}
	var out struct {
		Intent     IntentKind      `json:"intent"`
		Confidence json.RawMessage `json:"confidence"`
	}
	if err := DecodeJSON(text, &out); err != nil {
		s.logger.Warn("intent output malformed", "err", err)
		return Intent{Kind: IntentNone}
	}
	confidence, err := ParseConfidence(out.Confidence)
	if err != nil {
		s.logger.Warn("intent confidence malformed", "err", err)
		return Intent{Kind: IntentNone}
	}
	switch out.Intent {
	case IntentMCQ, IntentVideo, IntentDiagram, IntentNone:
	default:
		return Intent{Kind: IntentNone}
	}
	return Intent{Kind: out.Intent, Confidence: confidence, OK: true}
}

// ParseConfidence accepts a JSON number or numeric string; absent means 0.
func ParseConfidence(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(str), 64)
}

const mcqPrompt = `Generate one multiple choice question based on the provided medical context.
The question should test understanding of key concepts discussed.
The MCQ should be unique and not repeated from previous questions.
Always provide exactly FIVE options (A through E).
Avoid duplicating any old questions listed if possible.
Format the response as:
{
  "question": "question text",
  "options": ["A) option1", "B) option2", "C) option3", "D) option4", "E) option5"],
  "correct_answer": "A/B/C/D/E",
  "explanation": "explanation of correct answer"
}`

var answerLabel = regexp.MustCompile(`^[A-E]$`)

// GenerateMCQ asks for one question from a composed prompt and validates
// the shape of the answer.
func (s *Synthesizer) GenerateMCQ(ctx context.Context, prompt string, o Override) (models.MCQ, error) {
	text, err := s.Complete(ctx, Call{
		Operation: OpGenerateMCQ,
		Messages: []providers.ChatMessage{
			{Role: "system", Content: mcqPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: responseTemperature,
		Override:    o,
	})
	if err != nil {
		return models.MCQ{}, err
	}
	var mcq models.MCQ
	if err := DecodeJSON(text, &mcq); err != nil {
		return models.MCQ{}, fmt.Errorf("decode mcq: %w", util.ErrMalformedOutput)
	}
	mcq.CorrectAnswer = strings.ToUpper(strings.TrimSpace(mcq.CorrectAnswer))
	switch {
	case strings.TrimSpace(mcq.Question) == "":
		return models.MCQ{}, fmt.Errorf("mcq without question: %w", util.ErrMalformedOutput)
	case len(mcq.Options) != 5:
		return models.MCQ{}, fmt.Errorf("mcq has %d options: %w", len(mcq.Options), util.ErrMalformedOutput)
	case !answerLabel.MatchString(mcq.CorrectAnswer):
		return models.MCQ{}, fmt.Errorf("mcq answer %q: %w", mcq.CorrectAnswer, util.ErrMalformedOutput)
	}
	return mcq, nil
}

const summarizePrompt = `Summarize the following text to ~50 words or fewer.
Only include key medical terms or important concepts that would help retrieve a relevant diagram.
Omit extraneous details. Return just the summary text, with no extra formatting.`

// Summarize shortens text for diagram lookup. On failure it falls back to
// the first 200 characters of text.
func (s *Synthesizer) Summarize(ctx context.Context, text string, o Override) string {
	out, err := s.Complete(ctx, Call{
		Operation: OpSummarize,
		Messages: []providers.ChatMessage{
			{Role: "system", Content: summarizePrompt},
			{Role: "user", Content: text},
		},
		Temperature: summaryTemperature,
		Override:    o,
	})
	if err != nil || strings.TrimSpace(out) == "" {
		return util.Prefix(text, 200)
	}
	return strings.TrimSpace(out)
}

var fence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// DecodeJSON parses a model reply, tolerating a surrounding code fence.
func DecodeJSON(text string, v any) error {
	t := strings.TrimSpace(text)
	if m := fence.FindStringSubmatch(t); m != nil {
		t = m[1]
	}
	if err := json.Unmarshal([]byte(t), v); err != nil {
		return fmt.Errorf("%w: %v", util.ErrMalformedOutput, err)
	}
	return nil
}
