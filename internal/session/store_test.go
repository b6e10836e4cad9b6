package session

import (
	"sync"
	"testing"
	"time"

	"medtutor/internal/models"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	id := s.Create()
	msgs, ok := s.Get(id)
	require.True(t, ok)
	require.Empty(t, msgs)

	require.NoError(t, s.Append(id, models.Message{Role: models.RoleUser, Content: "hi"}))
	msgs, _ = s.Get(id)
	require.Len(t, msgs, 1)

	msgs[0].Content = "mutated"
	again, _ := s.Get(id)
	require.Equal(t, "hi", again[0].Content)

	s.Evict(id)
	_, ok = s.Get(id)
	require.False(t, ok)
	require.ErrorIs(t, s.Append(id, models.Message{}), ErrNotFound)
}

func TestMemoryStoreReplaceCreates(t *testing.T) {
	s := NewMemoryStore(0)
	s.Replace("chat-session", []models.Message{{Role: models.RoleAssistant, Content: "a"}})
	msgs, ok := s.Get("chat-session")
	require.True(t, ok)
	require.Len(t, msgs, 1)
}

func TestMemoryStoreMCQs(t *testing.T) {
	s := NewMemoryStore(0)
	id := s.Create()
	require.NoError(t, s.AddMCQ(id, models.MCQ{Question: "q1"}))
	require.Equal(t, "q1", s.MCQs(id)[0].Question)
	require.ErrorIs(t, s.AddMCQ("missing", models.MCQ{}), ErrNotFound)
}

func TestEvictIdle(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(10 * time.Minute)
	s.now = func() time.Time { return now }
	stale := s.Create()
	now = now.Add(8 * time.Minute)
	fresh := s.Create()
	now = now.Add(5 * time.Minute)

	require.Equal(t, 1, s.EvictIdle())
	_, ok := s.Get(stale)
	require.False(t, ok)
	_, ok = s.Get(fresh)
	require.True(t, ok)
}

func TestLocksSerializePerID(t *testing.T) {
	l := NewLocks()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("s1")
			defer unlock()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxSeen)
	require.Equal(t, 0, l.size())
}
