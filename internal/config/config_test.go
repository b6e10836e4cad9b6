package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MEDTUTOR_PAGE_SIZE", "")
	t.Setenv("MEDTUTOR_INTENT_THRESHOLD", "")
	cfg := Load()
	require.Equal(t, 1200, cfg.PageSize)
	require.Equal(t, 250, cfg.ChunkSize)
	require.Equal(t, 3072, cfg.EmbedDim)
	require.Equal(t, "medical_content", cfg.Collection)
	require.InDelta(t, 0.85, cfg.IntentThreshold, 1e-9)
}

func TestLoadOverridesAndBadValues(t *testing.T) {
	t.Setenv("MEDTUTOR_CHUNK_SIZE", "100")
	t.Setenv("MEDTUTOR_EMBED_RPS", "not-a-number")
	cfg := Load()
	require.Equal(t, 100, cfg.ChunkSize)
	require.InDelta(t, 8.0, cfg.EmbedRPS, 1e-9)
}
