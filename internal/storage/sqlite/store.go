// Package sqlite is a single-file ChatStore for local deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"medtutor/internal/models"
	"medtutor/internal/storage/sqlite/migrations"
	"medtutor/internal/util"

	"github.com/google/uuid"
)

type ChatStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewChatStore opens (and migrates) chats.db under dataDir.
func NewChatStore(dataDir string) (*ChatStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "chats.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	s := &ChatStore{db: db, path: dbPath, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *ChatStore) Close() error {
	return s.db.Close()
}

func (s *ChatStore) Path() string {
	return s.path
}

func (s *ChatStore) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}
	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			upFiles = append(upFiles, e.Name())
		}
	}
	sort.Strings(upFiles)
	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations(version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *ChatStore) CreateChat(ctx context.Context, userID, title string) (models.Chat, error) {
	now := s.now()
	c := models.Chat{ChatID: uuid.NewString(), UserID: userID, Title: title, LastActive: now, CreatedAt: now}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chats (chat_id, user_id, title, last_active, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ChatID, c.UserID, c.Title, now, now)
	if err != nil {
		return models.Chat{}, fmt.Errorf("inserting chat: %w", err)
	}
	return c, nil
}

func (s *ChatStore) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chat_id, user_id, title, COALESCE(current_topic, ''), is_deleted, last_active, created_at
		FROM chats WHERE chat_id = ?
	`, chatID)
	c, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, util.ErrChatNotFound
	}
	return c, err
}

func (s *ChatStore) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chat_id, user_id, title, COALESCE(current_topic, ''), is_deleted, last_active, created_at
		FROM chats
		WHERE user_id = ? AND is_deleted = 0
		ORDER BY last_active DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()
	out := make([]models.Chat, 0)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(r rowScanner) (models.Chat, error) {
	var (
		c       models.Chat
		deleted int
	)
	if err := r.Scan(&c.ChatID, &c.UserID, &c.Title, &c.CurrentTopic, &deleted, &c.LastActive, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Chat{}, err
		}
		return models.Chat{}, fmt.Errorf("scanning chat: %w", err)
	}
	c.IsDeleted = deleted != 0
	return c, nil
}

func (s *ChatStore) AppendMessage(ctx context.Context, msg models.StoredMessage) (models.StoredMessage, bool, error) {
	if _, err := s.GetChat(ctx, msg.ChatID); err != nil {
		return models.StoredMessage{}, false, err
	}
	now := s.now()
	if a, ok := msg.Attachment.(models.MCQAttachment); ok && a.IsAnswered {
		updated, err := s.markAnswered(ctx, msg.ChatID, a)
		if err != nil {
			return models.StoredMessage{}, false, err
		}
		if updated {
			return msg, true, s.touch(ctx, msg.ChatID, now)
		}
	}
	kind, data, err := models.EncodeAttachment(msg.Attachment)
	if err != nil {
		return models.StoredMessage{}, false, err
	}
	msg.MessageID = uuid.NewString()
	msg.Timestamp = now
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (message_id, chat_id, user_id, role, content, attachment_type, attachment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.MessageID, msg.ChatID, msg.UserID, string(msg.Role), msg.Content, nullString(string(kind)), nullString(string(data)), now)
	if err != nil {
		return models.StoredMessage{}, false, fmt.Errorf("inserting message: %w", err)
	}
	return msg, false, s.touch(ctx, msg.ChatID, now)
}

// markAnswered rewrites the newest stored MCQ with the same question.
func (s *ChatStore) markAnswered(ctx context.Context, chatID string, a models.MCQAttachment) (bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, attachment FROM chat_messages
		WHERE chat_id = ? AND attachment_type = 'mcq'
		ORDER BY seq DESC
	`, chatID)
	if err != nil {
		return false, fmt.Errorf("finding mcq: %w", err)
	}
	var (
		seq    int64
		stored models.MCQAttachment
		found  bool
	)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&seq, &raw); err != nil {
			rows.Close()
			return false, fmt.Errorf("scanning mcq: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &stored); err == nil && stored.Question == a.Question {
			found = true
			break
		}
	}
	rows.Close()
	if !found {
		return false, nil
	}
	stored.IsAnswered = true
	stored.UserAnswer = a.UserAnswer
	stored.IsCorrect = a.IsCorrect
	data, err := json.Marshal(stored)
	if err != nil {
		return false, fmt.Errorf("encoding mcq: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE chat_messages SET attachment = ? WHERE seq = ?", string(data), seq); err != nil {
		return false, fmt.Errorf("updating mcq: %w", err)
	}
	return true, nil
}

func (s *ChatStore) touch(ctx context.Context, chatID string, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE chats SET last_active = ? WHERE chat_id = ?", at, chatID); err != nil {
		return fmt.Errorf("touching chat: %w", err)
	}
	return nil
}

func (s *ChatStore) ListMessages(ctx context.Context, chatID string, limit int) ([]models.StoredMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryMessages(ctx, `
		SELECT message_id, chat_id, user_id, role, content, COALESCE(attachment_type, ''), COALESCE(attachment, ''), created_at
		FROM chat_messages WHERE chat_id = ?
		ORDER BY seq ASC LIMIT ?
	`, chatID, limit)
}

func (s *ChatStore) RecentMessages(ctx context.Context, chatID string, limit int) ([]models.StoredMessage, error) {
	if limit <= 0 {
		limit = 6
	}
	msgs, err := s.queryMessages(ctx, `
		SELECT message_id, chat_id, user_id, role, content, COALESCE(attachment_type, ''), COALESCE(attachment, ''), created_at
		FROM chat_messages WHERE chat_id = ?
		ORDER BY seq DESC LIMIT ?
	`, chatID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *ChatStore) queryMessages(ctx context.Context, query, chatID string, limit int) ([]models.StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()
	out := make([]models.StoredMessage, 0, limit)
	for rows.Next() {
		var (
			m          models.StoredMessage
			role, kind string
			data       string
		)
		if err := rows.Scan(&m.MessageID, &m.ChatID, &m.UserID, &role, &m.Content, &kind, &data, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = models.Role(role)
		m.Attachment, err = models.DecodeAttachment(models.AttachmentKind(kind), []byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *ChatStore) SetCurrentTopic(ctx context.Context, chatID, topic string) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE chats SET current_topic = ? WHERE chat_id = ?", nullString(topic), chatID); err != nil {
		return fmt.Errorf("setting current topic: %w", err)
	}
	return nil
}

func (s *ChatStore) SoftDeleteChat(ctx context.Context, chatID, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE chats SET is_deleted = 1 WHERE chat_id = ? AND user_id = ? AND is_deleted = 0", chatID, userID)
	if err != nil {
		return false, fmt.Errorf("soft deleting chat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("soft deleting chat: %w", err)
	}
	return n > 0, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
