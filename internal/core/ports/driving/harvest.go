package driving

import (
	"context"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// SourceHarvester is the single entry point a connector exposes to the aggregator.
type SourceHarvester interface {
	// Name identifies the source in merged results.
	Name() string

	// Harvest collects up to limit fragments for keyword.
	// A source-level failure is reported through the result status;
	// a returned error means the harvest could not start or the transport broke.
	Harvest(ctx context.Context, keyword string, limit int) (*domain.HarvestResult, error)
}

// HarvestService runs harvests across all sources and keeps their history.
type HarvestService interface {
	// Harvest runs every source concurrently and merges their results.
	Harvest(ctx context.Context, keyword string, limit int) (*domain.AggregateResult, error)

	// Sources returns the names of the configured sources.
	Sources() []string

	// History returns the most recent stored results.
	History(ctx context.Context, limit int) ([]*domain.HarvestResult, error)

	// Get returns a stored result by ID.
	Get(ctx context.Context, id string) (*domain.HarvestResult, error)

	// Delete removes a stored result.
	Delete(ctx context.Context, id string) error
}

// CredentialChecker verifies a source's credential against its API.
type CredentialChecker interface {
	// Validate returns the account the credential belongs to.
	Validate(ctx context.Context) (string, error)

	// Quota returns the current search allowance.
	Quota(ctx context.Context) (*domain.Quota, error)
}
