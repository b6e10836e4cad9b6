package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medtutor/internal/models"
	"medtutor/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ChatRepo struct {
	db *DB
}

func NewChatRepo(db *DB) *ChatRepo {
	return &ChatRepo{db: db}
}

func (r *ChatRepo) CreateChat(ctx context.Context, userID, title string) (models.Chat, error) {
	now := time.Now().UTC()
	c := models.Chat{ChatID: uuid.NewString(), UserID: userID, Title: title, LastActive: now, CreatedAt: now}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO chats (chat_id, user_id, title, last_active, created_at)
VALUES ($1, $2, $3, $4, $4)`, c.ChatID, c.UserID, c.Title, now)
	if err != nil {
		return models.Chat{}, fmt.Errorf("insert chat: %w", err)
	}
	return c, nil
}

func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	if _, err := uuid.Parse(chatID); err != nil {
		return models.Chat{}, util.ErrChatNotFound
	}
	var c models.Chat
	err := r.db.Pool.QueryRow(ctx, `
SELECT chat_id::text, user_id, title, COALESCE(current_topic,''), is_deleted, last_active, created_at
FROM chats WHERE chat_id=$1`, chatID).Scan(&c.ChatID, &c.UserID, &c.Title, &c.CurrentTopic, &c.IsDeleted, &c.LastActive, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Chat{}, util.ErrChatNotFound
	}
	if err != nil {
		return models.Chat{}, fmt.Errorf("get chat: %w", err)
	}
	return c, nil
}

func (r *ChatRepo) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT chat_id::text, user_id, title, COALESCE(current_topic,''), is_deleted, last_active, created_at
FROM chats
WHERE user_id=$1 AND NOT is_deleted
ORDER BY last_active DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	out := make([]models.Chat, 0)
	for rows.Next() {
		var c models.Chat
		if err := rows.Scan(&c.ChatID, &c.UserID, &c.Title, &c.CurrentTopic, &c.IsDeleted, &c.LastActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}
	return out, nil
}

func (r *ChatRepo) AppendMessage(ctx context.Context, msg models.StoredMessage) (models.StoredMessage, bool, error) {
	now := time.Now().UTC()
	if a, ok := answeredMCQ(msg); ok {
		patch, _ := json.Marshal(map[string]any{"isAnswered": true, "userAnswer": a.UserAnswer, "isCorrect": a.IsCorrect})
		tag, err := r.db.Pool.Exec(ctx, `
UPDATE chat_messages SET attachment = attachment || $3::jsonb
WHERE message_id = (
  SELECT message_id FROM chat_messages
  WHERE chat_id=$1 AND attachment_type='mcq' AND attachment->>'question' = $2
  ORDER BY seq DESC LIMIT 1
)`, msg.ChatID, a.Question, string(patch))
		if err != nil {
			return models.StoredMessage{}, false, fmt.Errorf("update answered mcq: %w", err)
		}
		if tag.RowsAffected() > 0 {
			if err := r.touch(ctx, msg.ChatID, now); err != nil {
				return models.StoredMessage{}, false, err
			}
			return msg, true, nil
		}
	}

	kind, data, err := models.EncodeAttachment(msg.Attachment)
	if err != nil {
		return models.StoredMessage{}, false, err
	}
	msg.MessageID = uuid.NewString()
	msg.Timestamp = now
	_, err = r.db.Pool.Exec(ctx, `
INSERT INTO chat_messages (message_id, chat_id, user_id, role, content, attachment_type, attachment, created_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), $7::jsonb, $8)`,
		msg.MessageID, msg.ChatID, msg.UserID, string(msg.Role), msg.Content, string(kind), nullableJSON(data), now)
	if err != nil {
		return models.StoredMessage{}, false, fmt.Errorf("insert chat message: %w", err)
	}
	if err := r.touch(ctx, msg.ChatID, now); err != nil {
		return models.StoredMessage{}, false, err
	}
	return msg, false, nil
}

func (r *ChatRepo) touch(ctx context.Context, chatID string, at time.Time) error {
	if _, err := r.db.Pool.Exec(ctx, `UPDATE chats SET last_active=$2 WHERE chat_id=$1`, chatID, at); err != nil {
		return fmt.Errorf("touch chat: %w", err)
	}
	return nil
}

func (r *ChatRepo) ListMessages(ctx context.Context, chatID string, limit int) ([]models.StoredMessage, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	return r.queryMessages(ctx, `
SELECT message_id::text, chat_id::text, user_id, role, content, COALESCE(attachment_type,''), attachment, created_at, seq
FROM chat_messages
WHERE chat_id=$1
ORDER BY seq ASC
LIMIT $2`, chatID, limit)
}

func (r *ChatRepo) RecentMessages(ctx context.Context, chatID string, limit int) ([]models.StoredMessage, error) {
	if limit <= 0 {
		limit = 6
	}
	return r.queryMessages(ctx, `
SELECT * FROM (
  SELECT message_id::text, chat_id::text, user_id, role, content, COALESCE(attachment_type,''), attachment, created_at, seq
  FROM chat_messages
  WHERE chat_id=$1
  ORDER BY seq DESC
  LIMIT $2
) recent
ORDER BY seq ASC`, chatID, limit)
}

// queryMessages scans rows ending in the seq column.
func (r *ChatRepo) queryMessages(ctx context.Context, query string, chatID string, limit int) ([]models.StoredMessage, error) {
	rows, err := r.db.Pool.Query(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	out := make([]models.StoredMessage, 0, limit)
	for rows.Next() {
		var (
			m    models.StoredMessage
			role string
			kind string
			data []byte
			seq  int64
		)
		if err := rows.Scan(&m.MessageID, &m.ChatID, &m.UserID, &role, &m.Content, &kind, &data, &m.Timestamp, &seq); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.Role = models.Role(role)
		m.Attachment, err = models.DecodeAttachment(models.AttachmentKind(kind), data)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return out, nil
}

func (r *ChatRepo) SetCurrentTopic(ctx context.Context, chatID, topic string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE chats SET current_topic=NULLIF($2,'') WHERE chat_id=$1`, chatID, topic)
	if err != nil {
		return fmt.Errorf("set current topic: %w", err)
	}
	return nil
}

// SoftDeleteChat hides a chat owned by userID. It reports false when no
// such chat exists.
func (r *ChatRepo) SoftDeleteChat(ctx context.Context, chatID, userID string) (bool, error) {
	if _, err := uuid.Parse(chatID); err != nil {
		return false, nil
	}
	tag, err := r.db.Pool.Exec(ctx, `UPDATE chats SET is_deleted=TRUE WHERE chat_id=$1 AND user_id=$2 AND NOT is_deleted`, chatID, userID)
	if err != nil {
		return false, fmt.Errorf("soft delete chat: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
