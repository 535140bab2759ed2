package domain

// AuthMethod identifies how a source authenticates.
type AuthMethod string

const (
	// AuthMethodNone is for sources that need no credentials.
	AuthMethodNone AuthMethod = "none"

	// AuthMethodPAT is a personal access token.
	AuthMethodPAT AuthMethod = "pat"
)

// String returns the method identifier.
func (m AuthMethod) String() string {
	return string(m)
}
