package bank

import (
	"context"
	"errors"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	banks map[string]Bank
}

// NewMemoryRepository constructs an in-memory bank repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{banks: make(map[string]Bank)}
}

func (r *memoryRepository) Create(_ context.Context, b Bank) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.banks[b.ID]; exists {
		return errors.New("bank exists")
	}
	r.banks[b.ID] = b
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Bank, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.banks[id]
	if !ok {
		return Bank{}, ErrNotFound
	}
	return b, nil
}
