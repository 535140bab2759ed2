package driven

import (
	"context"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// TokenProvider provides access tokens for authenticated API calls.
type TokenProvider interface {
	// GetToken returns the access token.
	// Returns empty string when no credential is configured.
	GetToken(ctx context.Context) (string, error)

	// AuthMethod returns the authentication method (oauth, pat, none).
	AuthMethod() domain.AuthMethod

	// IsAuthenticated returns true if a credential is available.
	IsAuthenticated() bool
}
