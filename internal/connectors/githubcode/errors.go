package githubcode

import (
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// Connector-specific errors.
var (
	// ErrMissingKey indicates no API key is configured. It is returned before any fetch.
	ErrMissingKey = fmt.Errorf("githubcode: missing GitHub API key: %w", domain.ErrAuthRequired)

	// ErrInvalidConfig indicates a configuration value is out of range.
	ErrInvalidConfig = errors.New("githubcode: invalid configuration")

	// ErrSessionFinished indicates Run was called on a session that already ran.
	ErrSessionFinished = errors.New("githubcode: session already finished")
)

// RateLimitError is reported when retries are exhausted while rate limited.
type RateLimitError struct {
	Page    int
	Retries int
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return fmt.Sprintf("githubcode: rate limited on page %d after %d retries", e.Page, e.Retries)
	}
	return fmt.Sprintf("githubcode: rate limited on page %d after %d retries, resets at %s",
		e.Page, e.Retries, e.ResetAt.Format(time.RFC3339))
}

// Unwrap lets errors.Is match domain.ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// APIError is a non-recoverable status returned by the search API.
type APIError struct {
	StatusCode int
	Page       int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("githubcode: API error %d on page %d", e.StatusCode, e.Page)
}

// Unwrap maps 401 to domain.ErrAuthInvalid and everything else to domain.ErrSourceFailed.
func (e *APIError) Unwrap() error {
	if e.StatusCode == 401 {
		return domain.ErrAuthInvalid
	}
	return domain.ErrSourceFailed
}

// TransportError wraps a failure to obtain a response at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("githubcode: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// ErrConnectorClosed indicates the connector has been closed.
var ErrConnectorClosed = errors.New("githubcode: connector closed")

// ErrNoClient indicates the connector runs on a custom transport without API access.
var ErrNoClient = errors.New("githubcode: no API client configured")
