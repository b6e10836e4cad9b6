package storage

import (
	"context"

	"medtutor/internal/models"
)

// ChatStore is the durable chat log. Messages are returned oldest first.
type ChatStore interface {
	CreateChat(ctx context.Context, userID, title string) (models.Chat, error)
	GetChat(ctx context.Context, chatID string) (models.Chat, error)
	ListChats(ctx context.Context, userID string) ([]models.Chat, error)
	// AppendMessage stores msg. An answered MCQ first updates the stored
	// question with the same text; updated reports that case.
	AppendMessage(ctx context.Context, msg models.StoredMessage) (stored models.StoredMessage, updated bool, err error)
	ListMessages(ctx context.Context, chatID string, limit int) ([]models.StoredMessage, error)
	RecentMessages(ctx context.Context, chatID string, limit int) ([]models.StoredMessage, error)
	SetCurrentTopic(ctx context.Context, chatID, topic string) error
	SoftDeleteChat(ctx context.Context, chatID, userID string) (bool, error)
}

const DefaultMessageLimit = 50

// answeredMCQ returns the attachment when msg records an answer to an
// existing question.
func answeredMCQ(msg models.StoredMessage) (models.MCQAttachment, bool) {
	a, ok := msg.Attachment.(models.MCQAttachment)
	if !ok || !a.IsAnswered {
		return models.MCQAttachment{}, false
	}
	return a, true
}
