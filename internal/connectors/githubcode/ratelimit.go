package githubcode

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// SearchRateLimit is the authenticated code search limit per minute.
	SearchRateLimit = 10

	// SearchProactiveRate keeps requests just under the per-minute limit.
	SearchProactiveRate = float64(SearchRateLimit) / 60

	// RetryDelay is the pause before retrying when the server gives no hint.
	RetryDelay = 5 * time.Second

	// MaxRetryDelay bounds any single pause.
	MaxRetryDelay = 2 * time.Minute

	// HeaderRateLimit is the rate limit header.
	HeaderRateLimit = "X-RateLimit-Limit"

	// HeaderRateRemaining is the remaining requests header.
	HeaderRateRemaining = "X-RateLimit-Remaining"

	// HeaderRateReset is the reset timestamp header (Unix seconds).
	HeaderRateReset = "X-RateLimit-Reset"

	// HeaderRetryAfter is the retry-after header (seconds).
	HeaderRetryAfter = "Retry-After"
)

// RateLimiter throttles search requests and tracks the API's reported quota.
type RateLimiter struct {
	mu        sync.Mutex
	remaining int           // From API header
	limit     int           // From API header
	resetTime time.Time     // From API header
	bucket    *rate.Limiter // Proactive throttling
	now       func() time.Time
}

// NewRateLimiter creates a rate limiter allowing rps requests per second.
func NewRateLimiter(rps float64) *RateLimiter {
	if rps <= 0 {
		rps = SearchProactiveRate
	}
	return &RateLimiter{
		remaining: SearchRateLimit, // Assume full quota initially
		limit:     SearchRateLimit,
		bucket:    rate.NewLimiter(rate.Limit(rps), 1),
		now:       time.Now,
	}
}

// Wait blocks until it's safe to make a request.
// It uses both proactive throttling and the reported remaining quota.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	remaining := r.remaining
	resetTime := r.resetTime
	r.mu.Unlock()

	if remaining <= 0 && r.now().Before(resetTime) {
		return sleep(ctx, resetTime.Sub(r.now()))
	}
	return nil
}

// UpdateFromResponse updates rate limit state from response headers.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if remaining := resp.Header.Get(HeaderRateRemaining); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			r.remaining = val
		}
	}

	if limit := resp.Header.Get(HeaderRateLimit); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			r.limit = val
		}
	}

	if reset := resp.Header.Get(HeaderRateReset); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil {
			r.resetTime = time.Unix(val, 0)
		}
	}
}

// RetryDelay returns how long to pause before re-requesting a rate-limited page.
// It prefers the response's Retry-After, then the quota reset time, then RetryDelay.
func (r *RateLimiter) RetryDelay(resp *Response) time.Duration {
	var d time.Duration
	switch {
	case resp != nil && resp.RetryAfter > 0:
		d = resp.RetryAfter
	default:
		reset := r.ResetTime()
		if now := r.now(); reset.After(now) {
			d = reset.Sub(now)
		} else {
			d = RetryDelay
		}
	}
	if d > MaxRetryDelay {
		d = MaxRetryDelay
	}
	return d
}

// Remaining returns the current remaining requests.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

// Limit returns the rate limit.
func (r *RateLimiter) Limit() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limit
}

// ResetTime returns the rate limit reset time.
func (r *RateLimiter) ResetTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetTime
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
