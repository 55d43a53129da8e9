package tokenstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process local Store for tests and redis-less dev runs
type MemoryStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.revoked[jti] = s.now().Add(ttl)
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.revoked[jti]
	if !ok {
		return false, nil
	}

	// Expired entries are dropped lazily on read
	if s.now().After(expiresAt) {
		delete(s.revoked, jti)
		return false, nil
	}

	return true, nil
}
