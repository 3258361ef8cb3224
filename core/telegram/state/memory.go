package state

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store backed by a mutex-guarded map.
// Values are stored by copy; callers must not share mutable fields
// between a stored value and one they keep modifying.
type MemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[int64]T
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{items: make(map[int64]T)}
}

func (m *MemoryStore[T]) Get(_ context.Context, userID int64) (T, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[userID]
	return v, ok, nil
}

func (m *MemoryStore[T]) Set(_ context.Context, userID int64, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[userID] = v
	return nil
}

func (m *MemoryStore[T]) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, userID)
	return nil
}

// size reports the number of users with a stored value.
func (m *MemoryStore[T]) size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
