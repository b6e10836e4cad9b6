package storage

import (
	"context"
	"testing"
	"time"

	"medtutor/internal/models"
	"medtutor/internal/storage/migrations"
	"medtutor/internal/util"

	"github.com/stretchr/testify/require"
)

func TestMemoryChatStoreListsByRecencyAndHidesDeleted(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChatStore()
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	a, err := s.CreateChat(ctx, "u@example.com", "A")
	require.NoError(t, err)
	b, err := s.CreateChat(ctx, "u@example.com", "B")
	require.NoError(t, err)
	_, err = s.CreateChat(ctx, "other@example.com", "C")
	require.NoError(t, err)

	_, _, err = s.AppendMessage(ctx, models.StoredMessage{ChatID: a.ChatID, UserID: "u@example.com", Role: models.RoleUser, Content: "hi"})
	require.NoError(t, err)

	chats, err := s.ListChats(ctx, "u@example.com")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	require.Equal(t, a.ChatID, chats[0].ChatID)

	ok, err := s.SoftDeleteChat(ctx, b.ChatID, "other@example.com")
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = s.SoftDeleteChat(ctx, b.ChatID, "u@example.com")
	require.NoError(t, err)
	require.True(t, ok)

	chats, _ = s.ListChats(ctx, "u@example.com")
	require.Len(t, chats, 1)
}

func TestMemoryChatStoreAnsweredMCQUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChatStore()
	c, _ := s.CreateChat(ctx, "u", "t")
	q := models.MCQ{Question: "Which organism causes TB?", Options: []string{"A) a", "B) b", "C) c", "D) d", "E) e"}, CorrectAnswer: "B"}

	_, updated, err := s.AppendMessage(ctx, models.StoredMessage{ChatID: c.ChatID, Role: models.RoleAssistant, Content: "mcq", Attachment: models.MCQAttachment{MCQ: q}})
	require.NoError(t, err)
	require.False(t, updated)

	answer := "B"
	correct := true
	_, updated, err = s.AppendMessage(ctx, models.StoredMessage{ChatID: c.ChatID, Role: models.RoleUser, Content: "B", Attachment: models.MCQAttachment{MCQ: q, IsAnswered: true, UserAnswer: &answer, IsCorrect: &correct}})
	require.NoError(t, err)
	require.True(t, updated)

	msgs, err := s.ListMessages(ctx, c.ChatID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	stored := msgs[0].Attachment.(models.MCQAttachment)
	require.True(t, stored.IsAnswered)
	require.Equal(t, "B", *stored.UserAnswer)

	other := models.MCQ{Question: "unseen"}
	_, updated, err = s.AppendMessage(ctx, models.StoredMessage{ChatID: c.ChatID, Role: models.RoleUser, Content: "A", Attachment: models.MCQAttachment{MCQ: other, IsAnswered: true}})
	require.NoError(t, err)
	require.False(t, updated)
	msgs, _ = s.ListMessages(ctx, c.ChatID, 0)
	require.Len(t, msgs, 2)
}

func TestMemoryChatStoreRecentMessages(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChatStore()
	c, _ := s.CreateChat(ctx, "u", "t")
	for _, content := range []string{"1", "2", "3", "4"} {
		_, _, err := s.AppendMessage(ctx, models.StoredMessage{ChatID: c.ChatID, Role: models.RoleUser, Content: content})
		require.NoError(t, err)
	}
	recent, err := s.RecentMessages(ctx, c.ChatID, 2)
	require.NoError(t, err)
	require.Equal(t, "3", recent[0].Content)
	require.Equal(t, "4", recent[1].Content)

	_, _, err = s.AppendMessage(ctx, models.StoredMessage{ChatID: "missing"})
	require.ErrorIs(t, err, util.ErrChatNotFound)
}

func TestUpMigrationsSorted(t *testing.T) {
	files, err := upMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	require.Equal(t, "001_init.up.sql", files[0])
}
