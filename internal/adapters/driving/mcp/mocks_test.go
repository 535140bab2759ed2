package mcp

import (
	"context"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
)

// Ensure mockHarvestService implements the interface.
var _ driving.HarvestService = (*mockHarvestService)(nil)

// mockHarvestService is a mock implementation of driving.HarvestService.
type mockHarvestService struct {
	aggregate   *domain.AggregateResult
	history     []*domain.HarvestResult
	result      *domain.HarvestResult
	err         error
	lastKeyword string
	lastLimit   int
}

func (m *mockHarvestService) Harvest(
	_ context.Context, keyword string, limit int,
) (*domain.AggregateResult, error) {
	m.lastKeyword = keyword
	m.lastLimit = limit
	return m.aggregate, m.err
}

func (m *mockHarvestService) Sources() []string {
	return []string{"githubcode"}
}

func (m *mockHarvestService) History(_ context.Context, limit int) ([]*domain.HarvestResult, error) {
	m.lastLimit = limit
	return m.history, m.err
}

func (m *mockHarvestService) Get(_ context.Context, _ string) (*domain.HarvestResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return nil, domain.ErrNotFound
	}
	return m.result, nil
}

func (m *mockHarvestService) Delete(_ context.Context, _ string) error {
	return m.err
}
