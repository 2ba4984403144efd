package expiry

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store for tests and single instances.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]time.Time)}
}

func (s *MemoryStore) GetOrCreate(_ context.Context, key string, value time.Time) (time.Time, bool, error) {
	if key == "" {
		return time.Time{}, false, ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.entries[key]; ok {
		return stored, false, nil
	}
	s.entries[key] = value
	return value, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Put seeds a value unconditionally. Used to stage legacy keys.
func (s *MemoryStore) Put(key string, value time.Time) {
	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()
}
