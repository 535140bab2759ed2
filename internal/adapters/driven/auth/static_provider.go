package auth

import (
	"context"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Ensure StaticTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*StaticTokenProvider)(nil)

// StaticTokenProvider returns a fixed personal access token.
// Used when the token is supplied directly, for example through MCP.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider creates a token provider for a fixed PAT.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

// GetToken returns the PAT token.
// PATs don't expire, so no refresh logic is needed.
func (p *StaticTokenProvider) GetToken(_ context.Context) (string, error) {
	return p.token, nil
}

// AuthMethod returns AuthMethodPAT.
func (p *StaticTokenProvider) AuthMethod() domain.AuthMethod {
	return domain.AuthMethodPAT
}

// IsAuthenticated returns true if the token is non-empty.
func (p *StaticTokenProvider) IsAuthenticated() bool {
	return p.token != ""
}
