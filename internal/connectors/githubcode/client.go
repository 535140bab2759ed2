package githubcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// TextMatchMediaType asks the search API to include text_matches.
	TextMatchMediaType = "application/vnd.github.text-match+json"
)

// Ensure Client implements the transport.
var _ Transport = (*Client)(nil)

// Client is the code search transport, built on go-github.
// It is safe for concurrent use by several sessions.
type Client struct {
	mu            sync.Mutex
	gh            *gh.Client
	tokenProvider driven.TokenProvider
	rateLimiter   *RateLimiter
	config        *Config
}

// NewClient creates a code search client that authenticates with tokenProvider.
func NewClient(tokenProvider driven.TokenProvider, cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Client{
		tokenProvider: tokenProvider,
		rateLimiter:   NewRateLimiter(cfg.RequestsPerSecond),
		config:        cfg,
	}
}

// NewClientWithHTTPClient creates a client around an existing http.Client.
// The http.Client is expected to add authentication itself.
func NewClientWithHTTPClient(httpClient *http.Client, cfg *Config) (*Client, error) {
	c := NewClient(nil, cfg)
	ghc, err := c.newGitHub(httpClient)
	if err != nil {
		return nil, err
	}
	c.gh = ghc
	return c, nil
}

// ensureClient initializes the go-github client if not already done.
// This is called lazily so the token is resolved when first needed.
func (c *Client) ensureClient(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gh != nil {
		return nil
	}
	if c.tokenProvider == nil {
		return ErrMissingKey
	}

	token, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	if token == "" {
		return ErrMissingKey
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = DefaultTimeout

	ghc, err := c.newGitHub(tc)
	if err != nil {
		return err
	}
	c.gh = ghc
	return nil
}

// newGitHub builds the go-github client, pointing at Enterprise when configured.
func (c *Client) newGitHub(httpClient *http.Client) (*gh.Client, error) {
	ghc := gh.NewClient(httpClient)
	if c.config.BaseURL == "" {
		return ghc, nil
	}
	ghc, err := ghc.WithEnterpriseURLs(c.config.BaseURL, c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return ghc, nil
}

// github returns the initialized go-github client.
func (c *Client) github() *gh.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gh
}

// Fetch requests one page of code search results for keyword.
// Error statuses are returned as a Response so the caller can classify them;
// only failures to get any response at all are returned as errors.
func (c *Client) Fetch(ctx context.Context, keyword string, page int) (*Response, error) {
	if err := c.ensureClient(ctx); err != nil {
		return nil, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("q", keyword)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.config.PerPage))

	ghc := c.github()
	req, err := ghc.NewRequest(http.MethodGet, "search/code?"+q.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Accept", TextMatchMediaType)

	var body bytes.Buffer
	resp, err := ghc.Do(ctx, req, &body)
	c.updateRateLimitFromResponse(resp)
	if err != nil {
		return c.responseFromError(ctx, page, resp, err)
	}

	return &Response{
		Page:       page,
		StatusCode: resp.StatusCode,
		Body:       body.Bytes(),
		Link:       resp.Header.Get("Link"),
	}, nil
}

// Backoff pauses before a rate-limited page is requested again.
func (c *Client) Backoff(ctx context.Context, resp *Response) error {
	return sleep(ctx, c.rateLimiter.RetryDelay(resp))
}

// responseFromError converts go-github errors back into status-coded responses.
func (c *Client) responseFromError(
	ctx context.Context, page int, resp *gh.Response, err error,
) (*Response, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		r := statusResponse(page, abuseErr.Response, http.StatusForbidden)
		if abuseErr.RetryAfter != nil {
			r.RetryAfter = *abuseErr.RetryAfter
		}
		return r, nil
	}

	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		r := statusResponse(page, rateLimitErr.Response, http.StatusForbidden)
		if wait := time.Until(rateLimitErr.Rate.Reset.Time); wait > 0 {
			r.RetryAfter = wait
		}
		return r, nil
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return statusResponse(page, ghErr.Response, ghErr.Response.StatusCode), nil
	}

	if resp != nil && resp.Response != nil && resp.StatusCode >= 300 {
		return statusResponse(page, resp.Response, resp.StatusCode), nil
	}

	return nil, &TransportError{Op: fmt.Sprintf("search code page %d", page), Err: err}
}

// statusResponse builds a bodiless response from an HTTP error response.
func statusResponse(page int, hr *http.Response, fallback int) *Response {
	r := &Response{Page: page, StatusCode: fallback}
	if hr == nil {
		return r
	}
	if hr.StatusCode != 0 {
		r.StatusCode = hr.StatusCode
	}
	if s := hr.Header.Get(HeaderRetryAfter); s != "" {
		if seconds, err := strconv.Atoi(s); err == nil {
			r.RetryAfter = time.Duration(seconds) * time.Second
		}
	}
	return r
}

// updateRateLimitFromResponse updates the rate limiter from GitHub response headers.
func (c *Client) updateRateLimitFromResponse(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	c.rateLimiter.UpdateFromResponse(resp.Response)
}

// ValidateCredentials checks the token by fetching the authenticated user.
// Returns the user's login.
func (c *Client) ValidateCredentials(ctx context.Context) (string, error) {
	if err := c.ensureClient(ctx); err != nil {
		return "", err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	user, resp, err := c.github().Users.Get(ctx, "")
	c.updateRateLimitFromResponse(resp)
	if err != nil {
		var ghErr *gh.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil {
			return "", &APIError{StatusCode: ghErr.Response.StatusCode}
		}
		return "", &TransportError{Op: "validate credentials", Err: err}
	}
	return user.GetLogin(), nil
}

// SearchRateLimit returns the current code search quota as reported by the API.
func (c *Client) SearchRateLimit(ctx context.Context) (*gh.Rate, error) {
	if err := c.ensureClient(ctx); err != nil {
		return nil, err
	}

	limits, _, err := c.github().RateLimit.Get(ctx)
	if err != nil {
		return nil, &TransportError{Op: "get rate limit", Err: err}
	}
	if limits.CodeSearch != nil {
		return limits.CodeSearch, nil
	}
	return limits.Search, nil
}

// RateLimiter returns the rate limiter for external access.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}
