package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store, used by the CLI when no database is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// GetEntry implements Store.
func (m *MemoryStore) GetEntry(_ context.Context, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	payload := make([]byte, len(e.Payload))
	copy(payload, e.Payload)
	return &Entry{Key: e.Key, Payload: payload, UpdatedAt: e.UpdatedAt}, nil
}

// UpsertEntry implements Store.
func (m *MemoryStore) UpsertEntry(_ context.Context, key string, payload []byte, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(payload))
	copy(stored, payload)
	m.entries[key] = Entry{Key: key, Payload: stored, UpdatedAt: updatedAt}
	return nil
}

// DeleteEntry implements Store.
func (m *MemoryStore) DeleteEntry(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// DeleteEntriesBefore implements Store.
func (m *MemoryStore) DeleteEntriesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, e := range m.entries {
		if !e.UpdatedAt.After(cutoff) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
