package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeJoinStaysUnderRoot(t *testing.T) {
	require.Equal(t, filepath.Join("data", "Fig 1.png"), SafeJoin("data", "Fig 1.png"))
	require.Equal(t, filepath.Join("data", "passwd"), SafeJoin("data", "../../etc/passwd"))
}

func TestWriteJSONAtomicLeavesNoTempFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ingest", "run-1")
	path := filepath.Join(dir, "summary.json")
	require.NoError(t, WriteJSONAtomic(path, map[string]int{"done": 3}))
	require.NoError(t, WriteJSONAtomic(path, map[string]int{"done": 4}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, 4, got["done"])
}
