package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of generations a MemoryStore retains when
// no capacity is given.
const DefaultCapacity = 500

// MemoryStore is an in-memory implementation of the Store interface.
// It keeps the most recent generations up to a fixed capacity, dropping the
// oldest first. Suitable for development, testing, or single-instance deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	items    []Generation // oldest first
	capacity int
}

// NewMemoryStore creates a new in-memory store. capacity <= 0 selects
// DefaultCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{capacity: capacity}
}

// RecordGeneration appends a generation, evicting the oldest when full.
func (m *MemoryStore) RecordGeneration(ctx context.Context, params RecordParams) (*Generation, error) {
	g := newGeneration(params)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = append(m.items, g)
	if over := len(m.items) - m.capacity; over > 0 {
		m.items = append(m.items[:0:0], m.items[over:]...)
	}
	return &g, nil
}

// ListGenerations returns up to limit generations, newest first.
func (m *MemoryStore) ListGenerations(ctx context.Context, limit int) ([]Generation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.items)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]Generation, 0, n)
	for i := len(m.items) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, m.items[i])
	}
	return result, nil
}

// GetGeneration retrieves a generation by ID.
func (m *MemoryStore) GetGeneration(ctx context.Context, id uuid.UUID) (*Generation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.items {
		if m.items[i].ID == id {
			g := m.items[i]
			return &g, nil
		}
	}
	return nil, ErrNotFound
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error {
	return nil
}
