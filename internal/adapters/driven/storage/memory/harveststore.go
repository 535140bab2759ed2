package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Ensure HarvestStore implements the interface.
var _ driven.HarvestStore = (*HarvestStore)(nil)

// HarvestStore is an in-memory implementation of driven.HarvestStore.
type HarvestStore struct {
	mu      sync.RWMutex
	results map[string]domain.HarvestResult
}

// NewHarvestStore creates a new in-memory harvest store.
func NewHarvestStore() *HarvestStore {
	return &HarvestStore{
		results: make(map[string]domain.HarvestResult),
	}
}

// Save stores or replaces a result.
func (s *HarvestStore) Save(_ context.Context, result *domain.HarvestResult) error {
	if result == nil || result.ID == "" {
		return fmt.Errorf("%w: harvest result needs an ID", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.ID] = clone(*result)
	return nil
}

// Get retrieves a result by ID.
func (s *HarvestStore) Get(_ context.Context, id string) (*domain.HarvestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := clone(result)
	return &c, nil
}

// List returns results newest first.
func (s *HarvestStore) List(_ context.Context, limit int) ([]*domain.HarvestResult, error) {
	s.mu.RLock()
	out := make([]*domain.HarvestResult, 0, len(s.results))
	for _, result := range s.results {
		c := clone(result)
		out = append(out, &c)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *domain.HarvestResult) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes a result.
func (s *HarvestStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.results, id)
	return nil
}

// clone detaches the fragment slice from the caller's copy.
func clone(r domain.HarvestResult) domain.HarvestResult {
	r.Fragments = slices.Clone(r.Fragments)
	return r
}
