package adaptive

import (
	"context"
	"sync"
)

// MemoryStore is the in-process Store used by default and in tests. Counters
// grow monotonically and are never pruned; durable pruning belongs to the
// Postgres store if it is ever needed.
type MemoryStore struct {
	mu       sync.RWMutex
	counters map[string]map[string]Counter // symbol -> factor -> counter
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]map[string]Counter),
	}
}

// Increment bumps the factor's trigger count, and its win count on a win.
func (s *MemoryStore) Increment(_ context.Context, symbol, factor string, win bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bySymbol, ok := s.counters[symbol]
	if !ok {
		bySymbol = make(map[string]Counter)
		s.counters[symbol] = bySymbol
	}

	c := bySymbol[factor]
	c.Total++
	if win {
		c.Wins++
	}
	bySymbol[factor] = c
	return nil
}

// Snapshot returns a copy of the symbol's counters.
func (s *MemoryStore) Snapshot(_ context.Context, symbol string) (map[string]Counter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Counter, len(s.counters[symbol]))
	for factor, c := range s.counters[symbol] {
		out[factor] = c
	}
	return out, nil
}
