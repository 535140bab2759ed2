package githubcode

import "net/http"

// Outcome is the classification of one page response.
// It is one of Success, Retry or Error.
type Outcome interface {
	isOutcome()
}

// Success carries the fragments of a page and its pagination.
// NextPage and LastPage are zero when absent.
type Success struct {
	Fragments []string
	NextPage  int
	LastPage  int
}

// Retry means the same page should be requested again later.
type Retry struct{}

// Error means the source cannot continue.
type Error struct {
	StatusCode int
}

func (Success) isOutcome() {}
func (Retry) isOutcome()   {}
func (Error) isOutcome()   {}

// Classify decides the outcome of a response.
//
// A nil response is a healthy, single-page result with no fragments.
// 2xx is Success, 403 and 429 are Retry, anything else is Error.
// A next page that does not advance past resp.Page is dropped.
func Classify(resp *Response) Outcome {
	if resp == nil {
		return Success{Fragments: []string{}}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		next, last := ParseLinkPages(resp.Link)
		if next != 0 && next <= resp.Page {
			next = 0
		}
		return Success{
			Fragments: FragmentsFromJSON(resp.Body),
			NextPage:  next,
			LastPage:  last,
		}
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusTooManyRequests:
		return Retry{}
	default:
		return Error{StatusCode: resp.StatusCode}
	}
}

// outcomeName labels an outcome for logs and metrics.
func outcomeName(o Outcome) string {
	switch o.(type) {
	case Success:
		return "success"
	case Retry:
		return "retry"
	default:
		return "error"
	}
}
