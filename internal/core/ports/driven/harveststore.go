package driven

import (
	"context"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// HarvestStore persists finished harvest results.
type HarvestStore interface {
	// Save creates or replaces a result keyed by its ID.
	Save(ctx context.Context, result *domain.HarvestResult) error

	// Get retrieves a result by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.HarvestResult, error)

	// List returns stored results, most recent first.
	// A limit of zero or less returns everything.
	List(ctx context.Context, limit int) ([]*domain.HarvestResult, error)

	// Delete removes a result by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}
