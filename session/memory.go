package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	attrs     map[string]string
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Expired sessions are dropped
// lazily on access.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, id, key string) (string, bool, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	if !ok {
		s.mu.RUnlock()
		return "", false, nil
	}
	if s.expired(e) {
		s.mu.RUnlock()
		s.mu.Lock()
		if e2, ok := s.sessions[id]; ok && s.expired(e2) {
			delete(s.sessions, id)
		}
		s.mu.Unlock()
		return "", false, nil
	}
	v, found := e.attrs[key]
	s.mu.RUnlock()
	return v, found, nil
}

func (s *MemoryStore) Set(_ context.Context, id, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(id)
	e.attrs[key] = value
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, id, key, value string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(id)
	if cur, ok := e.attrs[key]; ok {
		return cur, nil
	}
	e.attrs[key] = value
	return value, nil
}

func (s *MemoryStore) Delete(_ context.Context, id, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok {
		delete(e.attrs, key)
	}
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	return ok && !s.expired(e), nil
}

func (s *MemoryStore) Rename(_ context.Context, oldID, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[oldID]
	if !ok || s.expired(e) {
		delete(s.sessions, oldID)
		return nil
	}
	delete(s.sessions, oldID)
	s.sessions[newID] = e
	return nil
}

func (s *MemoryStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Touch(_ context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok && ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	return nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.sessions {
		if !s.expired(e) {
			n++
		}
	}
	return n
}

// entry must be called with mu held for writing.
func (s *MemoryStore) entry(id string) *memoryEntry {
	e, ok := s.sessions[id]
	if !ok || s.expired(e) {
		e = &memoryEntry{attrs: make(map[string]string)}
		s.sessions[id] = e
	}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	return e
}

func (s *MemoryStore) expired(e *memoryEntry) bool {
	return !e.expiresAt.IsZero() && s.now().After(e.expiresAt)
}
