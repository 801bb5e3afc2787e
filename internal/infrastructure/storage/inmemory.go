package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/printcore/backend/internal/domain/rendition"
)

// InMemoryObjectStorage keeps objects in a map. It backs development setups
// and pipeline tests; nothing about it is durable.
type InMemoryObjectStorage struct {
	// BaseURL is the prefix of returned URLs
	BaseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewInMemoryObjectStorage creates a new in-memory storage
func NewInMemoryObjectStorage() *InMemoryObjectStorage {
	return &InMemoryObjectStorage{
		BaseURL: "https://storage.example.com",
		objects: make(map[string][]byte),
	}
}

// Ensure InMemoryObjectStorage implements the domain port
var _ rendition.ObjectStorage = (*InMemoryObjectStorage)(nil)

// Put stores the buffer and returns its URL
func (s *InMemoryObjectStorage) Put(_ context.Context, key string, _ string, body []byte) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(body))
	copy(buf, body)
	s.objects[key] = buf

	return s.BaseURL + "/" + key, nil
}

// Delete removes a stored object
func (s *InMemoryObjectStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return errors.New("storage key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Get returns a stored object, for test assertions
func (s *InMemoryObjectStorage) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.objects[key]
	return body, ok
}

// Len returns the number of stored objects
func (s *InMemoryObjectStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
