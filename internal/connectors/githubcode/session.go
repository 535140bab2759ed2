package githubcode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
	"github.com/custodia-labs/harvester/internal/logger"
	"github.com/custodia-labs/harvester/internal/metrics"
)

// Transport obtains result pages for a session.
type Transport interface {
	// Fetch requests one page. Error statuses come back as a Response;
	// a returned error means no response was obtained.
	Fetch(ctx context.Context, keyword string, page int) (*Response, error)

	// Backoff pauses before resp's page is requested again.
	// It must return early with ctx.Err() when ctx is done.
	Backoff(ctx context.Context, resp *Response) error
}

// State is a step of the harvest state machine.
type State int

const (
	StateFetching State = iota
	StateAccumulating
	StateRetrying
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateAccumulating:
		return "accumulating"
	case StateRetrying:
		return "retrying"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) SessionOption {
	return func(s *Session) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithMaxRetries caps consecutive retries of one page. Zero means unlimited.
func WithMaxRetries(n int) SessionOption {
	return func(s *Session) {
		s.maxRetries = n
	}
}

// WithSourceName overrides the source name reported in results.
func WithSourceName(name string) SessionOption {
	return func(s *Session) {
		s.source = name
	}
}

// Session harvests one keyword page by page until the limit is met,
// pagination ends, or the source fails. A Session runs once.
type Session struct {
	source     string
	transport  Transport
	recorder   metrics.Recorder
	maxRetries int
	now        func() time.Time

	request   domain.SearchRequest
	state     State
	started   bool
	fragments []string
	quota     int
	pages     int
	retries   int
	streak    int
	last      *Response
	failure   error
}

// NewSession validates the request and resolves the credential.
// It returns ErrMissingKey before any fetch when no key is available.
func NewSession(
	ctx context.Context,
	keyword string,
	limit int,
	tokens driven.TokenProvider,
	transport Transport,
	opts ...SessionOption,
) (*Session, error) {
	if err := requireKey(ctx, tokens); err != nil {
		return nil, err
	}

	req, err := domain.NewSearchRequest(keyword, limit)
	if err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, errors.New("githubcode: transport is nil")
	}

	s := &Session{
		source:    SourceName,
		transport: transport,
		recorder:  metrics.Nop{},
		now:       time.Now,
		request:   req,
		state:     StateFetching,
		fragments: make([]string, 0),
		quota:     req.Limit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// requireKey fails fast when the credential cannot be resolved.
func requireKey(ctx context.Context, tokens driven.TokenProvider) error {
	if tokens == nil {
		return ErrMissingKey
	}
	token, err := tokens.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMissingKey, err)
	}
	if strings.TrimSpace(token) == "" {
		return ErrMissingKey
	}
	return nil
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Page returns the page the session will fetch next.
func (s *Session) Page() int {
	return s.request.Page
}

// Quota returns how many more fragments the session may collect.
func (s *Session) Quota() int {
	return s.quota
}

// HandleResponse classifies resp. A nil resp classifies the latest fetched
// response, or the healthy default if nothing was fetched yet.
func (s *Session) HandleResponse(resp *Response) Outcome {
	if resp == nil {
		resp = s.last
	}
	return Classify(resp)
}

// Run drives the harvest to a terminal state and returns what was collected.
//
// A source failure (such as 401) is reported through the result with a nil
// error. Cancellation returns the partial result with ctx.Err(). A transport
// failure returns the partial result with the transport error.
func (s *Session) Run(ctx context.Context) (*domain.HarvestResult, error) {
	if s.started {
		return nil, ErrSessionFinished
	}
	s.started = true

	result := &domain.HarvestResult{
		ID:        uuid.NewString(),
		Source:    s.source,
		Keyword:   s.request.Keyword,
		Limit:     s.request.Limit,
		StartedAt: s.now(),
	}

	logger.Section("Harvest " + s.source)
	err := s.loop(ctx)

	result.Fragments = s.fragments
	result.Pages = s.pages
	result.Retries = s.retries
	result.FinishedAt = s.now()

	switch s.state {
	case StateDone:
		result.Status = domain.HarvestDone
	case StateCancelled:
		result.Status = domain.HarvestCancelled
	default:
		result.Status = domain.HarvestFailed
	}
	if reason := firstErr(s.failure, err); reason != nil {
		result.Err = reason.Error()
	}

	s.recorder.HarvestFinished(s.source, string(result.Status), result.Duration())
	logger.Info("%s harvest for %q finished: %s, %d fragments over %d pages",
		s.source, s.request.Keyword, result.Status, len(result.Fragments), result.Pages)

	return result, err
}

// loop runs fetch cycles until a terminal state.
// It returns an error only for cancellation and transport failures.
func (s *Session) loop(ctx context.Context) error {
	log := logger.Logger().With().Str("source", s.source).Str("keyword", s.request.Keyword).Logger()

	for {
		if err := ctx.Err(); err != nil {
			s.state = StateCancelled
			return err
		}

		s.state = StateFetching
		page := s.request.Page
		log.Debug().Int("page", page).Int("quota", s.quota).Msg("fetching")

		resp, err := s.transport.Fetch(ctx, s.request.Keyword, page)
		s.recorder.PageFetched(s.source)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.state = StateCancelled
				return ctxErr
			}
			s.state = StateFailed
			return err
		}
		if resp == nil {
			resp = &Response{}
		}
		if resp.Page == 0 {
			resp.Page = page
		}
		s.last = resp

		outcome := s.HandleResponse(resp)
		s.recorder.Outcome(s.source, outcomeName(outcome))
		log.Debug().Int("page", page).Int("status", resp.StatusCode).
			Str("outcome", outcomeName(outcome)).Msg("classified")

		switch o := outcome.(type) {
		case Success:
			s.state = StateAccumulating
			s.streak = 0
			s.pages++
			s.accumulate(o.Fragments)

			next, ok := NextPageOrEnd(o)
			if !ok || s.quota == 0 {
				s.state = StateDone
				return nil
			}
			s.request = s.request.WithPage(next)

		case Retry:
			s.state = StateRetrying
			s.retries++
			s.streak++
			if s.maxRetries > 0 && s.streak > s.maxRetries {
				s.state = StateFailed
				s.failure = &RateLimitError{Page: page, Retries: s.streak - 1}
				log.Warn().Int("page", page).Int("retries", s.streak-1).Msg("retries exhausted")
				return nil
			}
			log.Debug().Int("page", page).Int("attempt", s.streak).Msg("rate limited, backing off")
			if err := s.transport.Backoff(ctx, resp); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					s.state = StateCancelled
					return ctxErr
				}
				s.state = StateFailed
				return &TransportError{Op: "backoff", Err: err}
			}

		case Error:
			s.state = StateFailed
			s.failure = &APIError{StatusCode: o.StatusCode, Page: page}
			log.Warn().Int("page", page).Int("status", o.StatusCode).Msg("source error")
			return nil
		}
	}
}

// accumulate appends fragments without exceeding the quota.
func (s *Session) accumulate(fragments []string) {
	if len(fragments) > s.quota {
		fragments = fragments[:s.quota]
	}
	s.fragments = append(s.fragments, fragments...)
	s.quota -= len(fragments)
	s.recorder.Fragments(s.source, len(fragments))
}

// Failure returns the source error that ended a failed harvest, if any.
func (s *Session) Failure() error {
	return s.failure
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
