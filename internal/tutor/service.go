// Package tutor is the conversational core: it ties sessions, topic
// resolution, retrieval and synthesis into the operations the transport
// layer calls. Every operation returns a structured result instead of an
// error.
package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"medtutor/internal/compose"
	"medtutor/internal/models"
	"medtutor/internal/providers"
	"medtutor/internal/session"
	"medtutor/internal/storage"
	"medtutor/internal/synth"
	"medtutor/internal/topics"
	"medtutor/internal/util"

	"github.com/google/uuid"
)

const (
	DefaultHydrateLimit = 6
	videoLimit          = 2
)

type Retriever interface {
	SearchContent(ctx context.Context, query, topic string, limit int) []models.SearchHit
	SearchDiagrams(ctx context.Context, query, topic string, limit int) []models.DiagramHit
	SearchVideos(ctx context.Context, query, topic, language string, limit int) []models.VideoHit
}

type Synthesizer interface {
	Respond(ctx context.Context, msgs []providers.ChatMessage, o synth.Override) (string, error)
	ClassifyIntent(ctx context.Context, message string, o synth.Override) synth.Intent
	GenerateMCQ(ctx context.Context, prompt string, o synth.Override) (models.MCQ, error)
	Summarize(ctx context.Context, text string, o synth.Override) string
}

type TopicResolver interface {
	Resolve(ctx context.Context, utterance string, history []models.Message, hasSession bool, o synth.Override) models.TopicResolution
}

type Options struct {
	// Chats backs HydrateSession. Nil disables hydration.
	Chats           storage.ChatStore
	IntentThreshold float64
	Logger          *slog.Logger
}

type Service struct {
	sessions  session.Store
	locks     *session.Locks
	resolver  TopicResolver
	content   Retriever
	llm       Synthesizer
	catalog   *topics.Catalog
	chats     storage.ChatStore
	threshold float64
	logger    *slog.Logger
}

func New(sessions session.Store, resolver TopicResolver, content Retriever, llm Synthesizer, catalog *topics.Catalog, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.IntentThreshold <= 0 {
		opts.IntentThreshold = 0.85
	}
	return &Service{
		sessions:  sessions,
		locks:     session.NewLocks(),
		resolver:  resolver,
		content:   content,
		llm:       llm,
		catalog:   catalog,
		chats:     opts.Chats,
		threshold: opts.IntentThreshold,
		logger:    opts.Logger,
	}
}

func (s *Service) CreateSession() string {
	return s.sessions.Create()
}

// ensure returns a usable session id, creating one when id is blank.
func (s *Service) ensure(id string) string {
	if strings.TrimSpace(id) == "" {
		return s.sessions.Create()
	}
	s.sessions.Ensure(id)
	return id
}

func (s *Service) ResolveTopic(ctx context.Context, sessionID, utterance string, o synth.Override) models.TopicResolution {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	history, ok := s.sessions.Get(sessionID)
	return s.resolver.Resolve(ctx, utterance, history, ok, o)
}

func (s *Service) label(topic string) string {
	if t, ok := s.catalog.Get(topic); ok {
		return t.Label
	}
	return topic
}

// ComposeAndRespond appends the user turn, answers it from the retrieved
// topic context and appends the assistant turn. On failure only the user
// turn remains in the session.
func (s *Service) ComposeAndRespond(ctx context.Context, sessionID, message, systemPrompt string, o synth.Override) ChatReply {
	sessionID = s.ensure(sessionID)
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	return s.composeAndRespond(ctx, sessionID, message, systemPrompt, o)
}

func (s *Service) composeAndRespond(ctx context.Context, sessionID, message, systemPrompt string, o synth.Override) ChatReply {
	history, ok := s.sessions.Get(sessionID)
	res := s.resolver.Resolve(ctx, message, history, ok, o)

	if err := s.sessions.Append(sessionID, models.Message{Role: models.RoleUser, Content: message}); err != nil {
		s.logger.Error("append user message failed", "session", sessionID, "err", err)
		return ChatReply{SessionID: sessionID, Response: msgProcessingError, Message: err.Error()}
	}
	history = append(history, models.Message{Role: models.RoleUser, Content: message})
	return s.answer(ctx, sessionID, message, systemPrompt, res, history, o)
}

// answerPending answers a user turn that is already the last message of
// the session. The topic is resolved from the turns before it.
func (s *Service) answerPending(ctx context.Context, sessionID, message, systemPrompt string, o synth.Override) ChatReply {
	history, ok := s.sessions.Get(sessionID)
	prior := history
	if n := len(history); n > 0 && history[n-1].Role == models.RoleUser {
		prior = history[:n-1]
	}
	res := s.resolver.Resolve(ctx, message, prior, ok, o)
	return s.answer(ctx, sessionID, message, systemPrompt, res, history, o)
}

func (s *Service) answer(ctx context.Context, sessionID, message, systemPrompt string, res models.TopicResolution, history []models.Message, o synth.Override) ChatReply {
	reference := ""
	if res.Success && res.Topic != "" {
		reference = compose.FormatHits(s.content.SearchContent(ctx, message, res.Topic, compose.ChatChunkLimit))
	}
	window := compose.Window(history, compose.ChatWindow)
	diagram, mcq := compose.Carried(window)
	system := compose.SystemGuidance(systemPrompt, diagram, mcq, reference)

	text, err := s.llm.Respond(ctx, compose.ChatMessages(system, window), o)
	if err != nil {
		s.logger.Error("chat response failed", "session", sessionID, "err", err)
		return ChatReply{SessionID: sessionID, Topic: res.Topic, Response: msgProcessingError, Message: failureMessage(err)}
	}
	reply := models.Message{Role: models.RoleAssistant, Content: text, DiagramContext: diagram, MCQContext: mcq}
	if err := s.sessions.Append(sessionID, reply); err != nil {
		s.logger.Error("append assistant message failed", "session", sessionID, "err", err)
		return ChatReply{SessionID: sessionID, Response: msgProcessingError, Message: err.Error()}
	}
	return ChatReply{Success: true, Response: text, SessionID: sessionID, Topic: res.Topic}
}

// topicFor requires a resolved topic.
func (s *Service) topicFor(ctx context.Context, utterance string, history []models.Message, ok bool, o synth.Override) (string, error) {
	res := s.resolver.Resolve(ctx, utterance, history, ok, o)
	if !res.Success || res.Topic == "" {
		if res.Err != nil {
			return "", fmt.Errorf("resolve topic: %w: %w", util.ErrNoTopic, res.Err)
		}
		return "", fmt.Errorf("resolve topic (%s): %w", res.Message, util.ErrNoTopic)
	}
	return res.Topic, nil
}

func (s *Service) GenerateMCQ(ctx context.Context, sessionID string, o synth.Override) MCQResult {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	return s.generateMCQ(ctx, sessionID, o)
}

func (s *Service) generateMCQ(ctx context.Context, sessionID string, o synth.Override) MCQResult {
	history, ok := s.sessions.Get(sessionID)
	topic, err := s.topicFor(ctx, "", history, ok, o)
	if err != nil {
		return MCQResult{Message: failureMessage(err)}
	}
	hits := s.content.SearchContent(ctx, s.label(topic), topic, compose.MCQChunkLimit)
	if len(hits) == 0 {
		s.logger.Info("mcq skipped, no context", "session", sessionID, "topic", topic)
		return MCQResult{Topic: topic, Message: failureMessage(util.ErrNoContext)}
	}
	prompt := compose.MCQPrompt(compose.FormatHits(hits), history, s.sessions.MCQs(sessionID))
	mcq, err := s.llm.GenerateMCQ(ctx, prompt, o)
	if err != nil {
		s.logger.Error("mcq generation failed", "session", sessionID, "topic", topic, "err", err)
		return MCQResult{Topic: topic, Message: failureMessage(err)}
	}
	if err := s.sessions.AddMCQ(sessionID, mcq); err != nil {
		return MCQResult{Topic: topic, Message: err.Error()}
	}
	att := models.MCQAttachment{MCQ: mcq}
	if err := s.sessions.Append(sessionID, models.Message{Role: models.RoleAssistant, Content: compose.FormatMCQ(mcq), MCQContext: &att}); err != nil {
		return MCQResult{Topic: topic, Message: err.Error()}
	}
	return MCQResult{Success: true, Topic: topic, MCQ: &mcq}
}

func (s *Service) GetDiagram(ctx context.Context, sessionID, utterance string, o synth.Override) DiagramResult {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	return s.getDiagram(ctx, sessionID, utterance, o)
}

func (s *Service) getDiagram(ctx context.Context, sessionID, utterance string, o synth.Override) DiagramResult {
	history, ok := s.sessions.Get(sessionID)
	topic, err := s.topicFor(ctx, utterance, history, ok, o)
	if err != nil {
		return DiagramResult{Message: failureMessage(err)}
	}
	summary := s.llm.Summarize(ctx, compose.DiagramSource(history, utterance), o)
	hits := s.content.SearchDiagrams(ctx, compose.DiagramQuery(summary, topic), topic, 1)
	if len(hits) == 0 {
		return DiagramResult{Topic: topic, Message: msgNoDiagram}
	}
	hit := hits[0]
	dc := models.DiagramContext{
		ImagePath:   hit.ImagePath,
		Description: hit.Description,
		Topic:       hit.Topic,
		DiagramType: hit.DiagramType,
	}
	if ok {
		if err := s.sessions.Append(sessionID, compose.DiagramMessages(dc, s.label(topic))...); err != nil {
			s.logger.Warn("append diagram messages failed", "session", sessionID, "err", err)
		}
	}
	return DiagramResult{
		Success: true,
		Topic:   topic,
		Diagram: &models.DiagramAttachment{DiagramContext: dc, RelevanceScore: hit.Score, ContextID: uuid.NewString()},
	}
}

func (s *Service) GetVideos(ctx context.Context, sessionID string, o synth.Override) VideoResult {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	return s.getVideos(ctx, sessionID, o)
}

func (s *Service) getVideos(ctx context.Context, sessionID string, o synth.Override) VideoResult {
	history, ok := s.sessions.Get(sessionID)
	topic, err := s.topicFor(ctx, "", history, ok, o)
	if err != nil {
		return VideoResult{Message: failureMessage(err)}
	}
	query := compose.VideoQuery(history)
	var hits []models.VideoHit
	for _, lang := range []string{"english", "urdu"} {
		hits = append(hits, s.content.SearchVideos(ctx, query, topic, lang, videoLimit)...)
	}
	videos := compose.SplitVideos(hits)
	if len(videos.English) == 0 && len(videos.Urdu) == 0 {
		return VideoResult{Topic: topic, Message: msgNoVideos}
	}
	return VideoResult{Success: true, Topic: topic, Videos: &videos}
}

// HydrateSession replaces the session history with the last limit stored
// messages of chatID. A blank sessionID creates a new session.
func (s *Service) HydrateSession(ctx context.Context, chatID, sessionID string, limit int) HydrateResult {
	if s.chats == nil {
		return HydrateResult{Message: msgNoChatStore}
	}
	if limit <= 0 {
		limit = DefaultHydrateLimit
	}
	stored, err := s.chats.RecentMessages(ctx, chatID, limit)
	if err != nil {
		s.logger.Error("load recent messages failed", "chat", chatID, "err", err)
		return HydrateResult{Message: err.Error()}
	}
	msgs := make([]models.Message, 0, len(stored))
	for _, m := range stored {
		msgs = append(msgs, models.ToSessionMessage(m))
	}
	if strings.TrimSpace(sessionID) == "" {
		sessionID = s.sessions.Create()
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	s.sessions.Replace(sessionID, msgs)
	return HydrateResult{Success: true, SessionID: sessionID, Loaded: len(msgs)}
}

// Chat classifies the message first and dispatches confident artifact
// requests. Everything else, including a failed artifact request, is
// answered as plain chat.
func (s *Service) Chat(ctx context.Context, sessionID, message, systemPrompt string, o synth.Override) DispatchReply {
	sessionID = s.ensure(sessionID)
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	intent := s.llm.ClassifyIntent(ctx, message, o)
	if !intent.Actionable(s.threshold) {
		return textReply(sessionID, s.composeAndRespond(ctx, sessionID, message, systemPrompt, o))
	}
	s.logger.Info("dispatching intent", "session", sessionID, "intent", intent.Kind, "confidence", intent.Confidence)
	if err := s.sessions.Append(sessionID, models.Message{Role: models.RoleUser, Content: message}); err != nil {
		return DispatchReply{SessionID: sessionID, Type: ReplyText, Response: msgProcessingError, Message: err.Error()}
	}

	var failure string
	switch intent.Kind {
	case synth.IntentMCQ:
		r := s.generateMCQ(ctx, sessionID, o)
		if r.Success {
			return DispatchReply{Success: true, SessionID: sessionID, Type: ReplyMCQ, Response: compose.FormatMCQ(*r.MCQ), Data: r.MCQ}
		}
		failure = r.Message
	case synth.IntentDiagram:
		r := s.getDiagram(ctx, sessionID, message, o)
		if r.Success {
			return DispatchReply{Success: true, SessionID: sessionID, Type: ReplyDiagram, Response: r.Diagram.Description, Data: r.Diagram}
		}
		failure = r.Message
	default:
		r := s.getVideos(ctx, sessionID, o)
		if r.Success {
			resp := fmt.Sprintf("Here are some videos about %s.", s.label(r.Topic))
			if err := s.sessions.Append(sessionID, models.Message{Role: models.RoleAssistant, Content: resp}); err != nil {
				s.logger.Warn("append video reply failed", "session", sessionID, "err", err)
			}
			return DispatchReply{Success: true, SessionID: sessionID, Type: ReplyVideo, Response: resp, Data: r.Videos}
		}
		failure = r.Message
	}
	s.logger.Info("intent dispatch failed, answering as chat", "session", sessionID, "intent", intent.Kind, "reason", failure)
	return textReply(sessionID, s.answerPending(ctx, sessionID, message, systemPrompt, o))
}

func textReply(sessionID string, r ChatReply) DispatchReply {
	return DispatchReply{Success: r.Success, Response: r.Response, SessionID: sessionID, Type: ReplyText, Message: r.Message}
}
