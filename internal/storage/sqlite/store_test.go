package sqlite

import (
	"context"
	"testing"
	"time"

	"medtutor/internal/models"
	"medtutor/internal/storage"
	"medtutor/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ storage.ChatStore = (*ChatStore)(nil)

func setupTestStore(t *testing.T) *ChatStore {
	t.Helper()
	store, err := NewChatStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func TestChatLifecycle(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	clock := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	first, err := store.CreateChat(ctx, "u@example.com", "first")
	require.NoError(t, err)
	second, err := store.CreateChat(ctx, "u@example.com", "second")
	require.NoError(t, err)

	_, _, err = store.AppendMessage(ctx, models.StoredMessage{ChatID: first.ChatID, UserID: "u@example.com", Role: models.RoleUser, Content: "hello"})
	require.NoError(t, err)

	chats, err := store.ListChats(ctx, "u@example.com")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, first.ChatID, chats[0].ChatID)

	deleted, err := store.SoftDeleteChat(ctx, second.ChatID, "u@example.com")
	require.NoError(t, err)
	assert.True(t, deleted)
	chats, err = store.ListChats(ctx, "u@example.com")
	require.NoError(t, err)
	assert.Len(t, chats, 1)

	_, err = store.GetChat(ctx, "nope")
	assert.ErrorIs(t, err, util.ErrChatNotFound)
}

func TestAttachmentsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	c, err := store.CreateChat(ctx, "u", "t")
	require.NoError(t, err)

	diagram := models.DiagramAttachment{DiagramContext: models.DiagramContext{ImagePath: "/diagrams/tuberculosis/Fig 1.png", Description: "d", Topic: "tuberculosis", DiagramType: "fig"}}
	video := models.VideoAttachment{English: []models.VideoRef{{URL: "https://e"}}, Urdu: []models.VideoRef{}}
	for _, m := range []models.StoredMessage{
		{ChatID: c.ChatID, Role: models.RoleUser, Content: "plain"},
		{ChatID: c.ChatID, Role: models.RoleAssistant, Content: "diagram", Attachment: diagram},
		{ChatID: c.ChatID, Role: models.RoleAssistant, Content: "video", Attachment: video},
	} {
		_, _, err := store.AppendMessage(ctx, m)
		require.NoError(t, err)
	}

	msgs, err := store.ListMessages(ctx, c.ChatID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, models.TextAttachment{}, msgs[0].Attachment)
	assert.Equal(t, diagram, msgs[1].Attachment)
	assert.Equal(t, video, msgs[2].Attachment)

	recent, err := store.RecentMessages(ctx, c.ChatID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "diagram", recent[0].Content)
	assert.Equal(t, "video", recent[1].Content)
}

func TestAnsweredMCQUpdatesStoredQuestion(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	c, err := store.CreateChat(ctx, "u", "t")
	require.NoError(t, err)
	q := models.MCQ{Question: "Q?", Options: []string{"A) 1", "B) 2", "C) 3", "D) 4", "E) 5"}, CorrectAnswer: "D"}
	_, _, err = store.AppendMessage(ctx, models.StoredMessage{ChatID: c.ChatID, Role: models.RoleAssistant, Content: "mcq", Attachment: models.MCQAttachment{MCQ: q}})
	require.NoError(t, err)

	ans, right := "A", false
	_, updated, err := store.AppendMessage(ctx, models.StoredMessage{ChatID: c.ChatID, Role: models.RoleUser, Attachment: models.MCQAttachment{MCQ: q, IsAnswered: true, UserAnswer: &ans, IsCorrect: &right}})
	require.NoError(t, err)
	assert.True(t, updated)

	msgs, err := store.ListMessages(ctx, c.ChatID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	got := msgs[0].Attachment.(models.MCQAttachment)
	assert.True(t, got.IsAnswered)
	assert.False(t, *got.IsCorrect)
	assert.Equal(t, q.Options, got.Options)
}
