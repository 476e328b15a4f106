package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/crosscall/pkg/domain"
)

// Store implements ports.SlotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]domain.Outcome
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]domain.Outcome),
	}
}

// Save persists the outcomes in memory.
func (s *Store) Save(ctx context.Context, id string, outcomes []domain.Outcome) error {
	// Copy so later mutation of the caller's slice does not leak in.
	copied := make([]domain.Outcome, len(outcomes))
	copy(copied, outcomes)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = copied
	return nil
}

// Slot reads one outcome.
func (s *Store) Slot(ctx context.Context, id string, i int) (domain.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	outcomes, ok := s.data[id]
	if !ok {
		return domain.Outcome{}, fmt.Errorf("%s: %w", id, domain.ErrSlotsNotFound)
	}
	if i < 0 || i >= len(outcomes) {
		return domain.Outcome{}, fmt.Errorf("slot %d of %d: %w", i, len(outcomes), domain.ErrSlotNotFound)
	}
	return outcomes[i], nil
}

// Count returns the number of slots of a set.
func (s *Store) Count(ctx context.Context, id string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	outcomes, ok := s.data[id]
	if !ok {
		return 0, fmt.Errorf("%s: %w", id, domain.ErrSlotsNotFound)
	}
	return len(outcomes), nil
}

// Delete removes a set.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns pending sets.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
