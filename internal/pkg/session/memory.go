package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory. Sessions do not survive a
// restart and are not shared between replicas.
type MemoryStore struct {
	opts Options

	mu     sync.RWMutex
	data   map[string]Session
	byUser map[int64]map[string]struct{}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		opts:   opts.withDefaults(),
		data:   make(map[string]Session),
		byUser: make(map[int64]map[string]struct{}),
	}
}

func (s *MemoryStore) Issue(_ context.Context, id Identity) (string, error) {
	token := s.opts.Tokens.Generate()
	key, err := s.opts.key(token)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = s.opts.newSession(id)
	if s.byUser[id.UserID] == nil {
		s.byUser[id.UserID] = make(map[string]struct{})
	}
	s.byUser[id.UserID][key] = struct{}{}

	return token, nil
}

func (s *MemoryStore) Resolve(_ context.Context, token string) (Identity, error) {
	key, err := s.opts.key(token)
	if err != nil {
		return Identity{}, err
	}

	s.mu.RLock()
	sess, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	if sess.expired(s.opts.Clock.Now()) {
		s.mu.Lock()
		s.remove(key, sess.UserID)
		s.mu.Unlock()
		return Identity{}, ErrInvalidToken
	}

	return sess.Identity, nil
}

func (s *MemoryStore) Revoke(_ context.Context, token string) error {
	key, err := s.opts.key(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.data[key]; ok {
		s.remove(key, sess.UserID)
	}
	return nil
}

func (s *MemoryStore) RevokeUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.byUser[userID] {
		delete(s.data, key)
	}
	delete(s.byUser, userID)
	return nil
}

// remove must be called with mu held for writing.
func (s *MemoryStore) remove(key string, userID int64) {
	delete(s.data, key)
	if keys, ok := s.byUser[userID]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(s.byUser, userID)
		}
	}
}
