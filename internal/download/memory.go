package download

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore keeps exports in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	types map[string]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte), types: make(map[string]string)}
}

// PutObject stores a copy of data and returns a memory:// URI.
func (s *MemoryStore) PutObject(_ context.Context, path string, contentType string, data io.Reader) (string, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read export payload: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = b
	s.types[path] = contentType
	return "memory://" + path, nil
}

// Object returns the stored payload and content type for path.
func (s *MemoryStore) Object(path string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[path]
	return append([]byte(nil), b...), s.types[path], ok
}
