package wager

import (
	"sync"
	"time"
)

// RandomBit draws the outcome bit of an eligible round.
type RandomBit interface {
	Bit() int
}

// ClockSource derives the bit from the parity of the current unix second.
// It is predictable and not cryptographically secure: a caller who controls
// submission timing can choose the outcome.
type ClockSource struct {
	Now func() time.Time
}

// Bit returns unix_seconds & 1.
func (s ClockSource) Bit() int {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return int(now().Unix() & 1)
}

// FixedSource always returns the same bit.
type FixedSource int

// Bit returns the fixed value.
func (s FixedSource) Bit() int { return int(s) & 1 }

// SequenceSource replays bits in order and repeats the last one once exhausted.
type SequenceSource struct {
	mu   sync.Mutex
	bits []int
	next int
}

// NewSequenceSource builds a source replaying bits.
func NewSequenceSource(bits ...int) *SequenceSource {
	return &SequenceSource{bits: bits}
}

// Bit returns the next bit of the sequence.
func (s *SequenceSource) Bit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bits) == 0 {
		return 0
	}
	i := s.next
	if i >= len(s.bits) {
		i = len(s.bits) - 1
	} else {
		s.next++
	}
	return s.bits[i] & 1
}
