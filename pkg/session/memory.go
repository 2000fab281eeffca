package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (s *MemoryStore) Get(_ context.Context, registry string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := registryKey(registry)
	sess, ok := s.sessions[key]
	if !ok {
		return nil, nil
	}
	if sess.IsExpired() {
		delete(s.sessions, key)
		return nil, nil
	}
	return &sess, nil
}

func (s *MemoryStore) Set(_ context.Context, sess *Session) error {
	if err := validate(sess); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[registryKey(sess.Registry)] = *sess
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, registry string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, registryKey(registry))
	return nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
