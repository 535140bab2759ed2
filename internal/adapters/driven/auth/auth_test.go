package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvester/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/harvester/internal/core/domain"
)

func newConfigProvider(values map[string]any, env map[string]string) *ConfigTokenProvider {
	p := NewConfigTokenProvider(memory.NewConfigStore(values))
	p.getenv = func(key string) string { return env[key] }
	return p
}

func TestConfigTokenProvider(t *testing.T) {
	tests := []struct {
		name       string
		values     map[string]any
		env        map[string]string
		wantToken  string
		wantSource string
	}{
		{
			name:       "config wins over env",
			values:     map[string]any{KeyGitHubToken: "from-config"},
			env:        map[string]string{EnvGitHubToken: "from-env"},
			wantToken:  "from-config",
			wantSource: "config",
		},
		{
			name:       "env fallback",
			env:        map[string]string{EnvGitHubToken: " from-env "},
			wantToken:  "from-env",
			wantSource: "env",
		},
		{
			name:       "blank config falls back to env",
			values:     map[string]any{KeyGitHubToken: "   "},
			env:        map[string]string{EnvGitHubToken: "from-env"},
			wantToken:  "from-env",
			wantSource: "env",
		},
		{
			name: "nothing configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newConfigProvider(tt.values, tt.env)

			token, err := p.GetToken(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
			assert.Equal(t, tt.wantSource, p.Source())
			assert.Equal(t, tt.wantToken != "", p.IsAuthenticated())
			assert.Equal(t, domain.AuthMethodPAT, p.AuthMethod())
		})
	}
}

func TestConfigTokenProvider_SetToken(t *testing.T) {
	store := memory.NewConfigStore(nil)
	p := NewConfigTokenProvider(store)
	p.getenv = func(string) string { return "" }

	require.NoError(t, p.SetToken("  ghp_new \n"))

	assert.Equal(t, "ghp_new", store.GetString(KeyGitHubToken))
	assert.True(t, p.IsAuthenticated())
}

func TestConfigTokenProvider_NilStore(t *testing.T) {
	p := NewConfigTokenProvider(nil)
	p.getenv = func(string) string { return "from-env" }

	token, err := p.GetToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "from-env", token)
	assert.ErrorIs(t, p.SetToken("x"), domain.ErrNotFound)
}

func TestStaticTokenProvider(t *testing.T) {
	p := NewStaticTokenProvider("lol")

	token, err := p.GetToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "lol", token)
	assert.True(t, p.IsAuthenticated())
	assert.Equal(t, domain.AuthMethodPAT, p.AuthMethod())

	assert.False(t, NewStaticTokenProvider("").IsAuthenticated())
}

func TestNullTokenProvider(t *testing.T) {
	p := NewNullTokenProvider()

	token, err := p.GetToken(context.Background())

	require.NoError(t, err)
	assert.Empty(t, token)
	assert.False(t, p.IsAuthenticated())
	assert.Equal(t, domain.AuthMethodNone, p.AuthMethod())
}
