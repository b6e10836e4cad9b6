package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"medtutor/internal/models"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Store holds transient chat sessions. Callers serialize work on one
// session through Locks; the store itself only guards its own maps.
type Store interface {
	Create() string
	Ensure(id string)
	Get(id string) ([]models.Message, bool)
	Append(id string, msgs ...models.Message) error
	Replace(id string, msgs []models.Message)
	MCQs(id string) []models.MCQ
	AddMCQ(id string, mcq models.MCQ) error
	Evict(id string)
}

type entry struct {
	messages []models.Message
	mcqs     []models.MCQ
	touched  time.Time
}

// MemoryStore keeps sessions in process memory. Sessions idle longer than
// ttl are dropped by Janitor.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*entry), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Create() string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &entry{touched: s.now()}
	return id
}

// Ensure registers id with an empty history if it is unknown. Clients may
// bring their own session ids.
func (s *MemoryStore) Ensure(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		s.sessions[id] = &entry{touched: s.now()}
	}
}

// Get returns a copy of the session history.
func (s *MemoryStore) Get(id string) ([]models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.touched = s.now()
	out := make([]models.Message, len(e.messages))
	copy(out, e.messages)
	return out, true
}

func (s *MemoryStore) Append(id string, msgs ...models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	e.messages = append(e.messages, msgs...)
	e.touched = s.now()
	return nil
}

// Replace overwrites the history, creating the session when needed.
func (s *MemoryStore) Replace(id string, msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]models.Message, len(msgs))
	copy(cp, msgs)
	e, ok := s.sessions[id]
	if !ok {
		e = &entry{}
		s.sessions[id] = e
	}
	e.messages = cp
	e.touched = s.now()
}

func (s *MemoryStore) MCQs(id string) []models.MCQ {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil
	}
	out := make([]models.MCQ, len(e.mcqs))
	copy(out, e.mcqs)
	return out
}

func (s *MemoryStore) AddMCQ(id string, mcq models.MCQ) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	e.mcqs = append(e.mcqs, mcq)
	return nil
}

func (s *MemoryStore) Evict(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle drops sessions untouched for longer than the TTL and returns
// how many were removed. A non-positive TTL disables eviction.
func (s *MemoryStore) EvictIdle() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	n := 0
	for id, e := range s.sessions {
		if e.touched.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Janitor runs EvictIdle every interval until ctx is done.
func (s *MemoryStore) Janitor(ctx context.Context, interval time.Duration, onEvict func(n int)) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.EvictIdle(); n > 0 && onEvict != nil {
				onEvict(n)
			}
		}
	}
}
