package auth

import (
	"context"
	"os"
	"strings"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

const (
	// KeyGitHubToken is the config key holding the GitHub API key.
	KeyGitHubToken = "github.token"

	// EnvGitHubToken is consulted when the config file has no key.
	EnvGitHubToken = "GITHUB_TOKEN"
)

// Ensure ConfigTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*ConfigTokenProvider)(nil)

// ConfigTokenProvider reads a personal access token from the config store,
// falling back to the GITHUB_TOKEN environment variable.
// An empty token is not an error here; sessions reject it before fetching.
type ConfigTokenProvider struct {
	store  driven.ConfigStore
	getenv func(string) string
}

// NewConfigTokenProvider creates a token provider backed by store.
func NewConfigTokenProvider(store driven.ConfigStore) *ConfigTokenProvider {
	return &ConfigTokenProvider{
		store:  store,
		getenv: os.Getenv,
	}
}

// GetToken returns the configured token, or the environment token.
func (p *ConfigTokenProvider) GetToken(_ context.Context) (string, error) {
	return p.token(), nil
}

// SetToken stores token in the config file.
func (p *ConfigTokenProvider) SetToken(token string) error {
	if p.store == nil {
		return domain.ErrNotFound
	}
	return p.store.Set(KeyGitHubToken, strings.TrimSpace(token))
}

// Source reports where the token comes from: "config", "env" or "".
func (p *ConfigTokenProvider) Source() string {
	if p.fromConfig() != "" {
		return "config"
	}
	if strings.TrimSpace(p.getenv(EnvGitHubToken)) != "" {
		return "env"
	}
	return ""
}

// AuthMethod returns AuthMethodPAT.
func (p *ConfigTokenProvider) AuthMethod() domain.AuthMethod {
	return domain.AuthMethodPAT
}

// IsAuthenticated returns true if a token is available.
func (p *ConfigTokenProvider) IsAuthenticated() bool {
	return p.token() != ""
}

func (p *ConfigTokenProvider) token() string {
	if t := p.fromConfig(); t != "" {
		return t
	}
	return strings.TrimSpace(p.getenv(EnvGitHubToken))
}

func (p *ConfigTokenProvider) fromConfig() string {
	if p.store == nil {
		return ""
	}
	return strings.TrimSpace(p.store.GetString(KeyGitHubToken))
}
