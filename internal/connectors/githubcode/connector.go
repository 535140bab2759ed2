package githubcode

import (
	"context"
	"sync"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
	"github.com/custodia-labs/harvester/internal/metrics"
)

// SourceName identifies this source in aggregated results.
const SourceName = "githubcode"

// Ensure Connector implements the interfaces.
var (
	_ driving.SourceHarvester   = (*Connector)(nil)
	_ driving.CredentialChecker = (*Connector)(nil)
)

// Option configures a Connector.
type Option func(*Connector)

// WithTransport replaces the go-github transport.
func WithTransport(t Transport) Option {
	return func(c *Connector) {
		c.transport = t
	}
}

// WithConnectorRecorder sets the metrics recorder passed to every session.
func WithConnectorRecorder(r metrics.Recorder) Option {
	return func(c *Connector) {
		c.recorder = r
	}
}

// Connector harvests code search fragments for the aggregator.
// Each Harvest call runs an independent Session; sessions share only the transport.
type Connector struct {
	config        *Config
	tokenProvider driven.TokenProvider
	transport     Transport
	client        *Client
	recorder      metrics.Recorder
	mu            sync.Mutex
	closed        bool
}

// New creates a code search connector.
func New(cfg *Config, tokenProvider driven.TokenProvider, opts ...Option) *Connector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &Connector{
		config:        cfg,
		tokenProvider: tokenProvider,
		recorder:      metrics.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.client = NewClient(tokenProvider, cfg)
		c.transport = c.client
	}
	return c
}

// Name returns the source name.
func (c *Connector) Name() string {
	return SourceName
}

// Harvest collects up to limit fragments for keyword.
// It returns ErrMissingKey before any request when no key is configured.
func (c *Connector) Harvest(ctx context.Context, keyword string, limit int) (*domain.HarvestResult, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrConnectorClosed
	}

	session, err := NewSession(ctx, keyword, limit, c.tokenProvider, c.transport,
		WithRecorder(c.recorder),
		WithMaxRetries(c.config.MaxRetries),
	)
	if err != nil {
		return nil, err
	}
	return session.Run(ctx)
}

// Validate checks the credential against the API and returns the account login.
func (c *Connector) Validate(ctx context.Context) (string, error) {
	if err := requireKey(ctx, c.tokenProvider); err != nil {
		return "", err
	}
	if c.client == nil {
		return "", ErrNoClient
	}

	login, err := c.client.ValidateCredentials(ctx)
	if err != nil {
		if IsUnauthorized(err) {
			return "", domain.ErrAuthInvalid
		}
		return "", err
	}
	return login, nil
}

// Quota returns the code search allowance reported by the API.
func (c *Connector) Quota(ctx context.Context) (*domain.Quota, error) {
	if err := requireKey(ctx, c.tokenProvider); err != nil {
		return nil, err
	}
	if c.client == nil {
		return nil, ErrNoClient
	}

	rate, err := c.client.SearchRateLimit(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Quota{
		Limit:     rate.Limit,
		Remaining: rate.Remaining,
		ResetAt:   rate.Reset.Time,
	}, nil
}

// Client returns the go-github transport, or nil when a custom transport is used.
func (c *Connector) Client() *Client {
	return c.client
}

// Close releases resources. Later Harvest calls fail.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
