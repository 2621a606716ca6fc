package data

import "sync"

// QuoteStore holds the latest quote snapshot and allows atomic replacement.
// Snapshots are treated as immutable once stored, so readers holding an old
// pointer never observe a partially written quote.
type QuoteStore struct {
	mu      sync.RWMutex
	current *Quote
}

// NewQuoteStore creates a store seeded with initial, which may be nil.
func NewQuoteStore(initial *Quote) *QuoteStore {
	return &QuoteStore{
		current: initial,
	}
}

// Swap atomically replaces the snapshot and returns the old one.
func (s *QuoteStore) Swap(q *Quote) *Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.current
	s.current = q
	return old
}

// Load returns the current snapshot and whether one has been stored.
func (s *QuoteStore) Load() (*Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}
