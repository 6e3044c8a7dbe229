package wager

import (
	"context"
	"sync"
)

type memoryRoundRepository struct {
	mu     sync.RWMutex
	rounds map[string]Round
	order  []string
}

// NewMemoryRoundRepository constructs an in-memory round repository.
func NewMemoryRoundRepository() RoundRepository {
	return &memoryRoundRepository{rounds: make(map[string]Round)}
}

func (r *memoryRoundRepository) Save(_ context.Context, round Round) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rounds[round.ID]; !exists {
		r.order = append(r.order, round.ID)
	}
	r.rounds[round.ID] = round
	return nil
}

func (r *memoryRoundRepository) Get(_ context.Context, id string) (Round, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	round, ok := r.rounds[id]
	if !ok {
		return Round{}, ErrRoundNotFound
	}
	return round, nil
}

func (r *memoryRoundRepository) ListByBank(_ context.Context, bankID string, limit int) ([]Round, error) {
	return r.filter(limit, func(round Round) bool { return round.BankID == bankID }), nil
}

func (r *memoryRoundRepository) ListByPlayer(_ context.Context, playerID string, limit int) ([]Round, error) {
	return r.filter(limit, func(round Round) bool { return round.PlayerID == playerID }), nil
}

func (r *memoryRoundRepository) filter(limit int, keep func(Round) bool) []Round {
	r.mu.RLock()
	defer r.mu.RUnlock()
	limit = normalizeLimit(limit)
	var out []Round
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		round := r.rounds[r.order[i]]
		if keep(round) {
			out = append(out, round)
		}
	}
	return out
}
