package state

import (
	"context"
	"sync"
)

type memoryStore[T any] struct {
	mu     sync.RWMutex
	values map[int64]T
}

// NewMemoryStore constructs an in-process Store. Values never expire.
func NewMemoryStore[T any]() Store[T] {
	return &memoryStore[T]{values: make(map[int64]T)}
}

// Get returns the value stored for the chat if it exists.
func (m *memoryStore[T]) Get(_ context.Context, chatID int64) (T, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[chatID]
	return v, ok, nil
}

// Set replaces the value stored for the chat.
func (m *memoryStore[T]) Set(_ context.Context, chatID int64, value T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[chatID] = value
	return nil
}

// Clear removes the value stored for the chat.
func (m *memoryStore[T]) Clear(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, chatID)
	return nil
}
