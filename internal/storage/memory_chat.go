package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"medtutor/internal/models"
	"medtutor/internal/util"

	"github.com/google/uuid"
)

// MemoryChatStore is a process-local ChatStore for development and tests.
type MemoryChatStore struct {
	mu       sync.Mutex
	chats    map[string]*models.Chat
	messages map[string][]models.StoredMessage
	now      func() time.Time
}

func NewMemoryChatStore() *MemoryChatStore {
	return &MemoryChatStore{
		chats:    make(map[string]*models.Chat),
		messages: make(map[string][]models.StoredMessage),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryChatStore) CreateChat(ctx context.Context, userID, title string) (models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	c := &models.Chat{ChatID: uuid.NewString(), UserID: userID, Title: title, LastActive: now, CreatedAt: now}
	s.chats[c.ChatID] = c
	return *c, nil
}

func (s *MemoryChatStore) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return models.Chat{}, util.ErrChatNotFound
	}
	return *c, nil
}

func (s *MemoryChatStore) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Chat, 0)
	for _, c := range s.chats {
		if c.UserID == userID && !c.IsDeleted {
			out = append(out, *c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastActive.After(out[j].LastActive) })
	return out, nil
}

func (s *MemoryChatStore) AppendMessage(ctx context.Context, msg models.StoredMessage) (models.StoredMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[msg.ChatID]
	if !ok {
		return models.StoredMessage{}, false, util.ErrChatNotFound
	}
	now := s.now()
	c.LastActive = now
	if a, ok := answeredMCQ(msg); ok {
		list := s.messages[msg.ChatID]
		for i := len(list) - 1; i >= 0; i-- {
			stored, isMCQ := list[i].Attachment.(models.MCQAttachment)
			if !isMCQ || stored.Question != a.Question {
				continue
			}
			stored.IsAnswered = true
			stored.UserAnswer = a.UserAnswer
			stored.IsCorrect = a.IsCorrect
			list[i].Attachment = stored
			return list[i], true, nil
		}
	}
	if _, _, err := models.EncodeAttachment(msg.Attachment); err != nil {
		return models.StoredMessage{}, false, err
	}
	msg.MessageID = uuid.NewString()
	msg.Timestamp = now
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], msg)
	return msg, false, nil
}

func (s *MemoryChatStore) ListMessages(ctx context.Context, chatID string, limit int) ([]models.StoredMessage, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.messages[chatID]
	if len(list) > limit {
		list = list[:limit]
	}
	return append([]models.StoredMessage(nil), list...), nil
}

func (s *MemoryChatStore) RecentMessages(ctx context.Context, chatID string, limit int) ([]models.StoredMessage, error) {
	if limit <= 0 {
		limit = 6
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.messages[chatID]
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return append([]models.StoredMessage(nil), list...), nil
}

func (s *MemoryChatStore) SetCurrentTopic(ctx context.Context, chatID, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return util.ErrChatNotFound
	}
	c.CurrentTopic = topic
	return nil
}

func (s *MemoryChatStore) SoftDeleteChat(ctx context.Context, chatID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok || c.UserID != userID || c.IsDeleted {
		return false, nil
	}
	c.IsDeleted = true
	return true, nil
}
