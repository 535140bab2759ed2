package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// harvestStore implements driven.HarvestStore.
type harvestStore struct {
	store *Store
}

var _ driven.HarvestStore = (*harvestStore)(nil)

const harvestColumns = `id, source, keyword, max_results, fragments, pages, retries,
	status, error, started_at, finished_at`

// Save stores or replaces a result.
func (s *harvestStore) Save(ctx context.Context, result *domain.HarvestResult) error {
	if result == nil || result.ID == "" {
		return fmt.Errorf("%w: harvest result needs an ID", domain.ErrInvalidInput)
	}

	fragments := result.Fragments
	if fragments == nil {
		fragments = []string{}
	}
	fragmentsJSON, err := json.Marshal(fragments)
	if err != nil {
		return fmt.Errorf("marshalling fragments: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO harvests (`+harvestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			keyword = excluded.keyword,
			max_results = excluded.max_results,
			fragments = excluded.fragments,
			pages = excluded.pages,
			retries = excluded.retries,
			status = excluded.status,
			error = excluded.error,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`, result.ID, result.Source, result.Keyword, result.Limit, string(fragmentsJSON),
		result.Pages, result.Retries, string(result.Status), result.Err,
		toUnixNano(result.StartedAt), toUnixNano(result.FinishedAt))
	if err != nil {
		return fmt.Errorf("saving harvest: %w", err)
	}
	return nil
}

// Get retrieves a result by ID.
func (s *harvestStore) Get(ctx context.Context, id string) (*domain.HarvestResult, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+harvestColumns+" FROM harvests WHERE id = ?", id)

	result, err := scanHarvest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// List returns results newest first.
func (s *harvestStore) List(ctx context.Context, limit int) ([]*domain.HarvestResult, error) {
	query := "SELECT " + harvestColumns + " FROM harvests ORDER BY started_at DESC, id ASC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying harvests: %w", err)
	}
	defer rows.Close()

	results := make([]*domain.HarvestResult, 0)
	for rows.Next() {
		result, err := scanHarvest(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating harvests: %w", err)
	}
	return results, nil
}

// Delete removes a result.
func (s *harvestStore) Delete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM harvests WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting harvest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting harvest: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanHarvest(row scanner) (*domain.HarvestResult, error) {
	var result domain.HarvestResult
	var fragmentsJSON, status string
	var startedAt, finishedAt int64
	if err := row.Scan(&result.ID, &result.Source, &result.Keyword, &result.Limit,
		&fragmentsJSON, &result.Pages, &result.Retries, &status, &result.Err,
		&startedAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning harvest: %w", err)
	}

	if err := json.Unmarshal([]byte(fragmentsJSON), &result.Fragments); err != nil {
		return nil, fmt.Errorf("unmarshalling fragments: %w", err)
	}
	if result.Fragments == nil {
		result.Fragments = []string{}
	}
	result.Status = domain.HarvestStatus(status)
	result.StartedAt = fromUnixNano(startedAt)
	result.FinishedAt = fromUnixNano(finishedAt)
	return &result, nil
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
