package githubcode

import "time"

// Response is one page as the transport saw it.
// StatusCode and Link drive classification; Body is only read on success.
type Response struct {
	// Page is the page that was requested.
	Page int

	// StatusCode is the HTTP status.
	StatusCode int

	// Body is the raw JSON payload. Empty for error statuses.
	Body []byte

	// Link is the raw Link header carrying pagination.
	Link string

	// RetryAfter is the server-requested delay for rate-limited responses.
	RetryAfter time.Duration
}
