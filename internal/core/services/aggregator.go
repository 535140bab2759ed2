package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
	"github.com/custodia-labs/harvester/internal/logger"
)

// Ensure Aggregator implements the interface.
var _ driving.HarvestService = (*Aggregator)(nil)

// Aggregator fans a keyword out to every source and merges the results.
// A failing source never blocks or discards the results of the others.
type Aggregator struct {
	sources []driving.SourceHarvester
	store   driven.HarvestStore // optional
	record  bool
}

// NewAggregator creates an aggregator over sources.
// The store is optional; when nil no history is kept.
func NewAggregator(store driven.HarvestStore, sources ...driving.SourceHarvester) *Aggregator {
	return &Aggregator{
		sources: sources,
		store:   store,
		record:  store != nil,
	}
}

// SetRecordHistory turns saving of finished harvests on or off.
func (a *Aggregator) SetRecordHistory(record bool) {
	a.record = record && a.store != nil
}

// Sources returns the names of the configured sources.
func (a *Aggregator) Sources() []string {
	names := make([]string, 0, len(a.sources))
	for _, s := range a.sources {
		names = append(names, s.Name())
	}
	return names
}

// Harvest runs every source concurrently.
//
// Results keep source registration order. A source that could not start
// (for example a missing key) is reported as a failed result. The returned
// error is ctx.Err() on cancellation, or the joined start errors when no
// source managed to run at all.
func (a *Aggregator) Harvest(ctx context.Context, keyword string, limit int) (*domain.AggregateResult, error) {
	if _, err := domain.NewSearchRequest(keyword, limit); err != nil {
		return nil, err
	}
	if len(a.sources) == 0 {
		return nil, domain.ErrNoSources
	}

	logger.Section("Aggregate Harvest")
	logger.Debug("Keyword %q, limit %d, %d sources", keyword, limit, len(a.sources))

	results := make([]*domain.HarvestResult, len(a.sources))
	errs := make([]error, len(a.sources))

	var wg sync.WaitGroup
	for i, source := range a.sources {
		wg.Add(1)
		go func(i int, source driving.SourceHarvester) {
			defer wg.Done()
			results[i], errs[i] = a.runSource(ctx, source, keyword, limit)
		}(i, source)
	}
	wg.Wait()

	agg := &domain.AggregateResult{Keyword: keyword, Results: results}

	if err := ctx.Err(); err != nil {
		logger.Warn("Harvest cancelled: %v", err)
		return agg, err
	}

	var startErrs []error
	for i, err := range errs {
		if err == nil {
			continue
		}
		logger.Warn("Source %s: %v", a.sources[i].Name(), err)
		if results[i].Pages == 0 {
			startErrs = append(startErrs, err)
		}
	}
	if len(startErrs) == len(a.sources) {
		return agg, errors.Join(startErrs...)
	}

	logger.Info("Harvested %d fragments from %d sources (%d failed)",
		len(agg.Fragments()), len(a.sources), len(agg.Failed()))
	return agg, nil
}

// runSource runs one source and always yields a result.
func (a *Aggregator) runSource(
	ctx context.Context, source driving.SourceHarvester, keyword string, limit int,
) (*domain.HarvestResult, error) {
	started := time.Now()
	result, err := source.Harvest(ctx, keyword, limit)

	if result == nil {
		// Never reached the source; nothing worth keeping in history.
		status := domain.HarvestFailed
		if ctx.Err() != nil {
			status = domain.HarvestCancelled
		}
		result = &domain.HarvestResult{
			ID:         uuid.NewString(),
			Source:     source.Name(),
			Keyword:    keyword,
			Limit:      limit,
			Fragments:  []string{},
			Status:     status,
			StartedAt:  started,
			FinishedAt: time.Now(),
		}
		if err != nil {
			result.Err = err.Error()
		}
		return result, err
	}

	if err != nil && result.Err == "" {
		result.Err = err.Error()
	}
	a.save(ctx, result)
	return result, err
}

// save records a result, logging rather than failing on storage errors.
func (a *Aggregator) save(ctx context.Context, result *domain.HarvestResult) {
	if !a.record {
		return
	}
	// Cancelled harvests are saved too.
	if err := a.store.Save(context.WithoutCancel(ctx), result); err != nil {
		logger.Warn("Failed to save harvest %s: %v", result.ID, err)
	}
}

// History returns the most recent stored results.
func (a *Aggregator) History(ctx context.Context, limit int) ([]*domain.HarvestResult, error) {
	if a.store == nil {
		return []*domain.HarvestResult{}, nil
	}
	return a.store.List(ctx, limit)
}

// Get returns a stored result by ID.
func (a *Aggregator) Get(ctx context.Context, id string) (*domain.HarvestResult, error) {
	if a.store == nil {
		return nil, domain.ErrNotFound
	}
	return a.store.Get(ctx, id)
}

// Delete removes a stored result.
func (a *Aggregator) Delete(ctx context.Context, id string) error {
	if a.store == nil {
		return domain.ErrNotFound
	}
	return a.store.Delete(ctx, id)
}
