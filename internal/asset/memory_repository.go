package asset

import (
	"context"
	"errors"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu         sync.RWMutex
	assetTypes map[string]AssetType
	holdings   map[string]Holding
}

// NewMemoryRepository constructs an in-memory asset repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		assetTypes: make(map[string]AssetType),
		holdings:   make(map[string]Holding),
	}
}

func (r *memoryRepository) CreateAssetType(_ context.Context, at AssetType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.assetTypes[at.ID]; exists {
		return errors.New("asset type exists")
	}
	r.assetTypes[at.ID] = at
	return nil
}

func (r *memoryRepository) GetAssetType(_ context.Context, id string) (AssetType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	at, ok := r.assetTypes[id]
	if !ok {
		return AssetType{}, ErrAssetTypeNotFound
	}
	return at, nil
}

func (r *memoryRepository) CreateHolding(_ context.Context, h Holding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.holdings[h.Address]; exists {
		return ErrHoldingExists
	}
	r.holdings[h.Address] = h
	return nil
}

func (r *memoryRepository) GetHolding(_ context.Context, address string) (Holding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.holdings[address]
	if !ok {
		return Holding{}, ErrHoldingNotFound
	}
	return h, nil
}

func (r *memoryRepository) ListHoldingsByOwner(_ context.Context, owner string) ([]Holding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Holding
	for _, h := range r.holdings {
		if h.Owner == owner {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepository) AdjustHoldings(_ context.Context, deltas []Delta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := mergeDeltas(deltas)
	for addr, delta := range merged {
		h, ok := r.holdings[addr]
		if !ok {
			return ErrHoldingNotFound
		}
		if h.Amount+delta < 0 {
			return ErrInsufficientHolding
		}
	}
	for addr, delta := range merged {
		h := r.holdings[addr]
		h.Amount += delta
		// Keyed by the stored address, never the caller's string.
		r.holdings[h.Address] = h
	}
	return nil
}
