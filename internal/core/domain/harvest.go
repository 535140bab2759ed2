package domain

import (
	"fmt"
	"strings"
	"time"
)

// SearchRequest identifies one page of a keyword harvest.
// Only Page changes between fetch cycles.
type SearchRequest struct {
	// Keyword is the search term. Must not be blank.
	Keyword string

	// Limit is the maximum number of fragments to collect. Must be positive.
	Limit int

	// Page is the 1-based page being requested.
	Page int
}

// NewSearchRequest creates a validated request starting at page 1.
func NewSearchRequest(keyword string, limit int) (SearchRequest, error) {
	req := SearchRequest{Keyword: keyword, Limit: limit, Page: 1}
	if err := req.Validate(); err != nil {
		return SearchRequest{}, err
	}
	return req, nil
}

// Validate checks the keyword, limit and page.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Keyword) == "" {
		return fmt.Errorf("%w: keyword is empty", ErrInvalidInput)
	}
	if r.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidInput, r.Limit)
	}
	if r.Page < 1 {
		return fmt.Errorf("%w: page must be at least 1, got %d", ErrInvalidInput, r.Page)
	}
	return nil
}

// WithPage returns a copy of the request pointing at another page.
func (r SearchRequest) WithPage(page int) SearchRequest {
	r.Page = page
	return r
}

// HarvestStatus is the terminal state of a harvest.
type HarvestStatus string

const (
	// HarvestDone means the limit was reached or pagination ended.
	HarvestDone HarvestStatus = "done"

	// HarvestFailed means the source reported a non-recoverable error.
	HarvestFailed HarvestStatus = "failed"

	// HarvestCancelled means the caller's context ended the harvest.
	HarvestCancelled HarvestStatus = "cancelled"
)

// HarvestResult is what one source produced for a keyword.
// Fragments keep insertion order; duplicates are not removed.
type HarvestResult struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`

	// Source is the name of the source that produced the result.
	Source string `json:"source"`

	// Keyword is the searched term.
	Keyword string `json:"keyword"`

	// Limit is the requested maximum number of fragments.
	Limit int `json:"limit"`

	// Fragments are the extracted text snippets, possibly partial.
	Fragments []string `json:"fragments"`

	// Pages is the number of pages successfully classified.
	Pages int `json:"pages"`

	// Retries is the number of rate-limited fetches that were retried.
	Retries int `json:"retries"`

	// Status is the terminal state.
	Status HarvestStatus `json:"status"`

	// Err describes the failure when Status is not done.
	Err string `json:"error,omitempty"`

	// StartedAt is when the harvest began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the harvest returned.
	FinishedAt time.Time `json:"finished_at"`
}

// Succeeded reports whether the source completed without failing.
func (r *HarvestResult) Succeeded() bool {
	return r != nil && r.Status == HarvestDone
}

// Duration returns how long the harvest ran.
func (r *HarvestResult) Duration() time.Duration {
	if r == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// AggregateResult merges the results of every source for one keyword.
type AggregateResult struct {
	// Keyword is the searched term.
	Keyword string `json:"keyword"`

	// Results holds one entry per source, in source registration order.
	Results []*HarvestResult `json:"results"`
}

// Fragments returns every fragment across sources, source order first.
func (a *AggregateResult) Fragments() []string {
	if a == nil {
		return nil
	}
	var all []string
	for _, r := range a.Results {
		all = append(all, r.Fragments...)
	}
	return all
}

// Failed returns the names of sources that did not succeed.
func (a *AggregateResult) Failed() []string {
	if a == nil {
		return nil
	}
	var names []string
	for _, r := range a.Results {
		if !r.Succeeded() {
			names = append(names, r.Source)
		}
	}
	return names
}
