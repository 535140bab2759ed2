// Package auth provides driven.TokenProvider implementations for the
// GitHub code search source.
//
// ConfigTokenProvider reads github.token from the config store and falls
// back to GITHUB_TOKEN. StaticTokenProvider wraps a token handed in directly.
// NullTokenProvider carries no credential.
package auth
