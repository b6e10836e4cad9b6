package bootstrap

import (
	"context"
	"strings"
	"testing"

	"medtutor/internal/config"
	"medtutor/internal/synth"

	"github.com/stretchr/testify/require"
)

func memoryConfig() config.Config {
	return config.Config{
		ChatStore:       "memory",
		VectorStore:     "memory",
		EmbedProviders:  "mock",
		LLMProviders:    "mock",
		EmbedDim:        16,
		PageSize:        40,
		ChunkSize:       10,
		IntentThreshold: 0.85,
		LogLevel:        "error",
	}
}

func TestOpenMemoryRuntime(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt, err := Open(ctx, memoryConfig(), nil)
	require.NoError(t, err)
	defer rt.Close()
	require.Nil(t, rt.DB)
	require.Nil(t, rt.IngestRuns())

	chats, err := rt.ChatStore()
	require.NoError(t, err)
	_, err = rt.Content.IngestTopic(ctx, "colorectal_cancer", strings.Repeat("colon polyp screening ", 30))
	require.NoError(t, err)

	svc := rt.Tutor(ctx, chats)
	reply := svc.ComposeAndRespond(ctx, "", "what is colorectal cancer", "", synth.Override{})
	require.True(t, reply.Success, reply.Message)
	require.Equal(t, "colorectal_cancer", reply.Topic)
}

func TestOpenRejectsUnknownStores(t *testing.T) {
	cfg := memoryConfig()
	cfg.VectorStore = "faiss"
	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)

	cfg = memoryConfig()
	cfg.ChatStore = "mongo"
	rt, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	_, err = rt.ChatStore()
	require.Error(t, err)
}

func TestSQLiteChatStore(t *testing.T) {
	cfg := memoryConfig()
	cfg.ChatStore = "sqlite"
	cfg.SQLiteDir = t.TempDir()
	rt, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer rt.Close()
	chats, err := rt.ChatStore()
	require.NoError(t, err)
	c, err := chats.CreateChat(context.Background(), "u", "t")
	require.NoError(t, err)
	require.NotEmpty(t, c.ChatID)
}
