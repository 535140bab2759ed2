package githubcode

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Configuration keys read from the config store.
const (
	KeyPerPage           = "github.per_page"
	KeyMaxRetries        = "github.max_retries"
	KeyRequestsPerSecond = "github.requests_per_second"
	KeyBaseURL           = "github.base_url"
)

const (
	// DefaultPerPage requests the largest page the search API allows.
	DefaultPerPage = 100

	// MaxPerPage is the search API's page size ceiling.
	MaxPerPage = 100

	// DefaultMaxRetries caps consecutive rate-limited fetches of one page.
	DefaultMaxRetries = 5
)

// Config holds the parsed configuration for the code search source.
type Config struct {
	// PerPage is the number of results requested per page.
	PerPage int

	// MaxRetries caps consecutive retries of one page. Zero means unlimited.
	MaxRetries int

	// RequestsPerSecond is the proactive throttle rate.
	RequestsPerSecond float64

	// BaseURL points at a GitHub Enterprise API. Empty uses api.github.com.
	BaseURL string
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		PerPage:           DefaultPerPage,
		MaxRetries:        DefaultMaxRetries,
		RequestsPerSecond: SearchProactiveRate,
	}
}

// ParseConfig reads the source configuration from store, applying defaults.
// A nil store yields the defaults.
func ParseConfig(store driven.ConfigStore) (*Config, error) {
	cfg := DefaultConfig()
	if store == nil {
		return cfg, nil
	}

	if _, ok := store.Get(KeyPerPage); ok {
		cfg.PerPage = store.GetInt(KeyPerPage)
	}
	if _, ok := store.Get(KeyMaxRetries); ok {
		cfg.MaxRetries = store.GetInt(KeyMaxRetries)
	}
	if v, ok := store.Get(KeyRequestsPerSecond); ok {
		rps, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, KeyRequestsPerSecond, err)
		}
		cfg.RequestsPerSecond = rps
	}
	cfg.BaseURL = strings.TrimSpace(store.GetString(KeyBaseURL))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every value is in range.
func (c *Config) Validate() error {
	if c.PerPage < 1 || c.PerPage > MaxPerPage {
		return fmt.Errorf("%w: %s must be between 1 and %d, got %d",
			ErrInvalidConfig, KeyPerPage, MaxPerPage, c.PerPage)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %d",
			ErrInvalidConfig, KeyMaxRetries, c.MaxRetries)
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %g",
			ErrInvalidConfig, KeyRequestsPerSecond, c.RequestsPerSecond)
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s is not an absolute URL: %q",
				ErrInvalidConfig, KeyBaseURL, c.BaseURL)
		}
	}
	return nil
}

// toFloat converts TOML numbers (int64 or float64) to float64.
func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
