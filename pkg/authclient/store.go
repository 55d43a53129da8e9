package authclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// Credential store keys. Written and cleared together, never one without the others.
const (
	KeyToken           = "token"
	KeyUser            = "user"
	KeyTokenExpiration = "token_expiration"
)

// Store is the credential storage the session manager writes to.
// Implementations must tolerate concurrent readers.
type Store interface {
	Get(key string) (string, bool)
	Set(key string, value string)
	Delete(key string)
}

// MemStore keeps credentials in memory. Good for tests and short-lived clients.
type MemStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{values: map[string]string{}}
}

func (s *MemStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	return value, ok
}

func (s *MemStore) Set(key string, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
}

func (s *MemStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
}

// FileStore persists credentials as a JSON object in a single file,
// so a CLI session survives between invocations.
// A missing or corrupt file reads as an empty store.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.read()[key]
	return value, ok
}

func (s *FileStore) Set(key string, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.read()
	values[key] = value
	s.write(values)
}

func (s *FileStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.read()
	delete(values, key)
	s.write(values)
}

func (s *FileStore) read() map[string]string {
	values := map[string]string{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return values
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return map[string]string{}
	}

	return values
}

func (s *FileStore) write(values map[string]string) {
	data, err := json.Marshal(values)
	if err != nil {
		return
	}

	// Credentials inside, owner-only permissions
	_ = os.WriteFile(s.path, data, 0o600)
}

// RemoveSessionFile deletes the backing file entirely
func (s *FileStore) RemoveSessionFile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
