// Package githubcode implements a harvester source backed by the GitHub code
// search API.
//
// A harvest queries code search for a keyword, walks the result pages in
// order and collects the text fragments GitHub highlights for each hit,
// stopping once the caller's limit is reached or pagination ends.
//
// # Architecture
//
// The package is built from small pieces, leaves first:
//
//   - ParseBody / Fragments: decode a page and extract fragments. Total over
//     any input; malformed items simply contribute nothing.
//   - Classify: turn a status-coded Response into an Outcome
//     (Success, Retry or Error). Pure.
//   - NextPageOrEnd: decide the page after a Success.
//   - Session: the state machine that fetches, classifies, accumulates and
//     retries until a terminal state.
//   - Client: the go-github transport with rate limiting.
//   - Connector: the [driving.SourceHarvester] the aggregator calls.
//
// # Authentication
//
// A personal access token is required. Sessions resolve it before the first
// request and fail with [ErrMissingKey] when it is absent.
//
// # Rate Limiting
//
// Code search allows 10 authenticated requests per minute. The client
// throttles proactively with a token bucket and reads X-RateLimit-* headers.
// A 403 or 429 classifies as Retry: the session asks the transport to back
// off (Retry-After, then the quota reset time, then [RetryDelay]) and
// requests the same page again. [Config.MaxRetries] bounds consecutive retries.
//
// # Error Handling
//
//   - Missing key: [ErrMissingKey], returned before any fetch
//   - Rate limits: retried internally
//   - 401 and other statuses: the harvest ends with status failed and the
//     fragments collected so far; no error is returned
//   - Network failures: returned as [TransportError] with partial results
//   - Malformed data: never an error
//
// # Example Usage
//
//	cfg, _ := githubcode.ParseConfig(configStore)
//	connector := githubcode.New(cfg, tokenProvider)
//
//	result, err := connector.Harvest(ctx, "aws_secret_access_key", 200)
//	if err != nil {
//	    return err
//	}
//	for _, fragment := range result.Fragments {
//	    // Process fragment
//	}
package githubcode
