package githubcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// mockTokenProvider implements driven.TokenProvider for testing.
type mockTokenProvider struct {
	token string
	err   error
}

func (p *mockTokenProvider) GetToken(_ context.Context) (string, error) {
	return p.token, p.err
}

func (p *mockTokenProvider) AuthMethod() domain.AuthMethod {
	return domain.AuthMethodPAT
}

func (p *mockTokenProvider) IsAuthenticated() bool {
	return p.token != ""
}

// step is one scripted transport reply.
type step struct {
	resp *Response
	err  error
}

// scriptedTransport replays steps in order and records requested pages.
type scriptedTransport struct {
	mu         sync.Mutex
	steps      []step
	pages      []int
	keywords   []string
	backoffs   int
	backoffErr error
	onFetch    func(page int)
	onBackoff  func()
}

func (t *scriptedTransport) Fetch(_ context.Context, keyword string, page int) (*Response, error) {
	t.mu.Lock()
	t.pages = append(t.pages, page)
	t.keywords = append(t.keywords, keyword)
	var s step
	if len(t.steps) > 0 {
		s = t.steps[0]
		t.steps = t.steps[1:]
	} else {
		s = step{resp: okPage()}
	}
	onFetch := t.onFetch
	t.mu.Unlock()

	if onFetch != nil {
		onFetch(page)
	}
	return s.resp, s.err
}

func (t *scriptedTransport) Backoff(ctx context.Context, _ *Response) error {
	t.mu.Lock()
	t.backoffs++
	onBackoff := t.onBackoff
	t.mu.Unlock()

	if onBackoff != nil {
		onBackoff()
	}
	if t.backoffErr != nil {
		return t.backoffErr
	}
	return ctx.Err()
}

// pageBody renders a search payload with one item per fragment.
func pageBody(fragments ...string) []byte {
	type match struct {
		Fragment string `json:"fragment"`
	}
	type item struct {
		TextMatches []match `json:"text_matches"`
	}
	items := make([]item, 0, len(fragments))
	for _, f := range fragments {
		items = append(items, item{TextMatches: []match{{Fragment: f}}})
	}
	data, _ := json.Marshal(map[string]any{"items": items})
	return data
}

// linkHeader renders a GitHub-style Link header.
func linkHeader(next, last int) string {
	base := "https://api.github.com/search/code?q=test&page=%d"
	return fmt.Sprintf(`<`+base+`>; rel="next", <`+base+`>; rel="last"`, next, last)
}

func okPage(fragments ...string) *Response {
	return &Response{StatusCode: http.StatusOK, Body: pageBody(fragments...)}
}

func pagedResponse(next, last int, fragments ...string) *Response {
	r := okPage(fragments...)
	r.Link = linkHeader(next, last)
	return r
}

func newTestSession(t *testing.T, transport Transport, limit int, opts ...SessionOption) *Session {
	t.Helper()
	s, err := NewSession(context.Background(), "test", limit, &mockTokenProvider{token: "lol"}, transport, opts...)
	require.NoError(t, err)
	return s
}

func TestNewSession(t *testing.T) {
	transport := &scriptedTransport{}

	t.Run("missing key fails before any fetch", func(t *testing.T) {
		_, err := NewSession(context.Background(), "test", 500, &mockTokenProvider{}, transport)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingKey)
		assert.ErrorIs(t, err, domain.ErrAuthRequired)
		assert.Empty(t, transport.pages)
	})

	t.Run("nil token provider is a missing key", func(t *testing.T) {
		_, err := NewSession(context.Background(), "test", 500, nil, transport)

		assert.ErrorIs(t, err, ErrMissingKey)
	})

	t.Run("token lookup failure is a missing key", func(t *testing.T) {
		tokens := &mockTokenProvider{err: errors.New("keyring locked")}

		_, err := NewSession(context.Background(), "test", 500, tokens, transport)

		assert.ErrorIs(t, err, ErrMissingKey)
		assert.Contains(t, err.Error(), "keyring locked")
	})

	t.Run("blank key is a missing key", func(t *testing.T) {
		_, err := NewSession(context.Background(), "test", 500, &mockTokenProvider{token: "  "}, transport)

		assert.ErrorIs(t, err, ErrMissingKey)
	})

	t.Run("invalid request is rejected", func(t *testing.T) {
		tokens := &mockTokenProvider{token: "lol"}

		_, err := NewSession(context.Background(), "", 500, tokens, transport)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = NewSession(context.Background(), "test", 0, tokens, transport)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("nil transport is rejected", func(t *testing.T) {
		_, err := NewSession(context.Background(), "test", 5, &mockTokenProvider{token: "lol"}, nil)

		assert.Error(t, err)
	})

	t.Run("starts fetching page one with full quota", func(t *testing.T) {
		s := newTestSession(t, transport, 500)

		assert.Equal(t, StateFetching, s.State())
		assert.Equal(t, 1, s.Page())
		assert.Equal(t, 500, s.Quota())
	})
}

func TestSession_HandleResponse(t *testing.T) {
	t.Run("no response and nothing fetched is success", func(t *testing.T) {
		s := newTestSession(t, &scriptedTransport{}, 500)

		assert.IsType(t, Success{}, s.HandleResponse(nil))
	})

	t.Run("403 is retry", func(t *testing.T) {
		s := newTestSession(t, &scriptedTransport{}, 500)

		assert.IsType(t, Retry{}, s.HandleResponse(&Response{StatusCode: http.StatusForbidden, Body: []byte("{}")}))
	})

	t.Run("401 is error", func(t *testing.T) {
		s := newTestSession(t, &scriptedTransport{}, 500)

		assert.IsType(t, Error{}, s.HandleResponse(&Response{StatusCode: http.StatusUnauthorized, Body: []byte("{}")}))
	})

	t.Run("no response reuses the latest fetched one", func(t *testing.T) {
		transport := &scriptedTransport{steps: []step{
			{resp: &Response{StatusCode: http.StatusUnauthorized}},
		}}
		s := newTestSession(t, transport, 500)

		_, err := s.Run(context.Background())
		require.NoError(t, err)

		assert.IsType(t, Error{}, s.HandleResponse(nil))
	})
}

func TestSession_Run(t *testing.T) {
	t.Run("walks pages in order until pagination ends", func(t *testing.T) {
		transport := &scriptedTransport{steps: []step{
			{resp: pagedResponse(2, 4, "a", "b")},
			{resp: pagedResponse(3, 4, "c")},
			{resp: pagedResponse(4, 4, "d")},
		}}
		s := newTestSession(t, transport, 500)

		result, err := s.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, transport.pages)
		assert.Equal(t, []string{"a", "b", "c", "d"}, result.Fragments)
		assert.Equal(t, domain.HarvestDone, result.Status)
		assert.True(t, result.Succeeded())
		assert.Equal(t, 3, result.Pages)
		assert.Equal(t, "test", result.Keyword)
		assert.Equal(t, SourceName, result.Source)
		assert.NotEmpty(t, result.ID)
		assert.Empty(t, result.Err)
		assert.Equal(t, StateDone, s.State())
	})

	t.Run("single page without pagination is done", func(t *testing.T) {
		transport := &scriptedTransport{steps: []step{{resp: okPage("test1", "test2")}}}
		s := newTestSession(t, transport, 500)

		result, err := s.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []int{1}, transport.pages)
		assert.Equal(t, []string{"test1", "test2"}, result.Fragments)
	})

	t.Run("never exceeds the limit", func(t *testing.T) {
		transport := &scriptedTransport{steps: []step{
			{resp: pagedResponse(2, 10, "a", "b", "c")},
			{resp: pagedResponse(3, 10, "d", "e", "f")},
			{resp: pagedResponse(4, 10, "g", "h", "i")},
		}}
		s := newTestSession(t, transport, 5)

		result, err := s.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, result.Fragments)
		assert.Equal(t, []int{1, 2}, transport.pages, "stops as soon as the quota is met")
		assert.Equal(t, domain.HarvestDone, result.Status)
		assert.Zero(t, s.Quota())
	})

	t.Run("may under-fill when pagination ends first", func(t *testing.T) {
		transport := &scriptedTransport{steps: []step{{resp: okPage("only")}}}
		s := newTestSession(t, transport, 100)

		result, err := s.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []string{"only"}, result.Fragments)
		assert.Equal(t, domain.HarvestDone, result.Status)
	})

	t.Run("keeps duplicates in insertion order", func(t *testing.T) {
		transport := &scriptedTransport{steps: []step{
			{resp: pagedResponse(2, 3, "dup", "x")},
			{resp: okPage("dup")},
		}}
		s := newTestSession(t, transport, 10)

		result, err := s.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []string{"dup", "x", "dup"}, result.Fragments)
	})

	t.Run("malformed pages still advance", func(t *testing.T) {
		malformed := &Response{StatusCode: http.StatusOK, Body: []byte(malformedBody), Link: linkHeader(2, 3)}
		transport := &scriptedTransport{steps: []step{
			{resp: malformed},
			{resp: okPage("after")},
		}}
		s := newTestSession(t, transport, 10)

		result, err := s.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, transport.pages)
		assert.Equal(t, []string{"after"}, result.Fragments)
	})

	t.Run("non-advancing next page ends the harvest", func(t *testing.T) {
		stuck := pagedResponse(1, 5, "a")
		transport := &scriptedTransport{steps: []step{{resp: stuck}}}
		s := newTestSession(t, transport, 10)

		result, err := s.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []int{1}, transport.pages)
		assert.Equal(t, domain.HarvestDone, result.Status)
	})
}

func TestSession_Retry(t *testing.T) {
	t.Run("retry refetches the same page with state unchanged", func(t *testing.T) {
		transport := &scriptedTransport{steps: []step{
			{resp: pagedResponse(2, 3, "a")},
			{resp: &Response{StatusCode: http.StatusForbidden}},
			{resp: &Response{StatusCode: http.StatusTooManyRequests}},
			{resp: okPage("b")},
		}}
		s := newTestSession(t, transport, 10)

		result, err := s.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 2, 2}, transport.pages)
		assert.Equal(t, 2, transport.backoffs)
		assert.Equal(t, []string{"a", "b"}, result.Fragments)
		assert.Equal(t, 2, result.Retries)
		assert.Equal(t, 2, result.Pages)
		assert.Equal(t, domain.HarvestDone, result.Status)
	})

	t.Run("exhausted retries fail the source without an error", func(t *testing.T) {
		transport := &scriptedTransport{steps: []step{
			{resp: pagedResponse(2, 3, "a")},
			{resp: &Response{StatusCode: http.StatusForbidden}},
			{resp: &Response{StatusCode: http.StatusForbidden}},
			{resp: &Response{StatusCode: http.StatusForbidden}},
		}}
		s := newTestSession(t, transport, 10, WithMaxRetries(2))

		result, err := s.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 2, 2}, transport.pages)
		assert.Equal(t, 2, transport.backoffs)
		assert.Equal(t, domain.HarvestFailed, result.Status)
		assert.Equal(t, []string{"a"}, result.Fragments)
		assert.True(t, IsRateLimited(s.Failure()))
		assert.ErrorIs(t, s.Failure(), domain.ErrRateLimited)
		assert.Contains(t, result.Err, "rate limited")
	})

	t.Run("streak resets after a successful page", func(t *testing.T) {
		transport := &scriptedTransport{steps: []step{
			{resp: &Response{StatusCode: http.StatusForbidden}},
			{resp: pagedResponse(2, 3, "a")},
			{resp: &Response{StatusCode: http.StatusForbidden}},
			{resp: okPage("b")},
		}}
		s := newTestSession(t, transport, 10, WithMaxRetries(1))

		result, err := s.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, domain.HarvestDone, result.Status)
		assert.Equal(t, []string{"a", "b"}, result.Fragments)
	})

	t.Run("cancellation during backoff returns partial results", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		transport := &scriptedTransport{
			steps: []step{
				{resp: pagedResponse(2, 3, "a")},
				{resp: &Response{StatusCode: http.StatusForbidden}},
			},
			onBackoff: cancel,
		}
		s := newTestSession(t, transport, 10, WithMaxRetries(0))

		result, err := s.Run(ctx)

		assert.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, result)
		assert.Equal(t, domain.HarvestCancelled, result.Status)
		assert.Equal(t, []string{"a"}, result.Fragments)
		assert.Equal(t, []int{1, 2}, transport.pages)
	})

	t.Run("backoff failure is a transport error", func(t *testing.T) {
		transport := &scriptedTransport{
			steps:      []step{{resp: &Response{StatusCode: http.StatusForbidden}}},
			backoffErr: errors.New("clock broke"),
		}
		s := newTestSession(t, transport, 10)

		result, err := s.Run(context.Background())

		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, domain.HarvestFailed, result.Status)
	})
}

func TestSession_Error(t *testing.T) {
	t.Run("401 fails with partial results and no error", func(t *testing.T) {
		transport := &scriptedTransport{steps: []step{
			{resp: pagedResponse(2, 5, "a", "b")},
			{resp: &Response{StatusCode: http.StatusUnauthorized, Body: []byte("{}")}},
		}}
		s := newTestSession(t, transport, 10)

		result, err := s.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, domain.HarvestFailed, result.Status)
		assert.False(t, result.Succeeded())
		assert.Equal(t, []string{"a", "b"}, result.Fragments)
		assert.Equal(t, []int{1, 2}, transport.pages)
		assert.True(t, IsUnauthorized(s.Failure()))
		assert.ErrorIs(t, s.Failure(), domain.ErrAuthInvalid)
		assert.Contains(t, result.Err, "401")
		assert.Equal(t, StateFailed, s.State())
	})

	t.Run("server error fails the source", func(t *testing.T) {
		transport := &scriptedTransport{steps: []step{
			{resp: &Response{StatusCode: http.StatusInternalServerError}},
		}}
		s := newTestSession(t, transport, 10)

		result, err := s.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, domain.HarvestFailed, result.Status)
		assert.Empty(t, result.Fragments)
		assert.ErrorIs(t, s.Failure(), domain.ErrSourceFailed)
	})

	t.Run("transport failure returns partial results with the error", func(t *testing.T) {
		boom := errors.New("connection reset")
		transport := &scriptedTransport{steps: []step{
			{resp: pagedResponse(2, 5, "a")},
			{err: boom},
		}}
		s := newTestSession(t, transport, 10)

		result, err := s.Run(context.Background())

		assert.ErrorIs(t, err, boom)
		require.NotNil(t, result)
		assert.Equal(t, domain.HarvestFailed, result.Status)
		assert.Equal(t, []string{"a"}, result.Fragments)
		assert.Contains(t, result.Err, "connection reset")
	})
}

func TestSession_Cancellation(t *testing.T) {
	t.Run("cancelled before start fetches nothing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		transport := &scriptedTransport{}
		s := newTestSession(t, transport, 10)

		result, err := s.Run(ctx)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, domain.HarvestCancelled, result.Status)
		assert.Empty(t, transport.pages)
		assert.Empty(t, result.Fragments)
	})

	t.Run("cancelled between pages keeps collected fragments", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		transport := &scriptedTransport{
			steps: []step{
				{resp: pagedResponse(2, 5, "a")},
				{resp: pagedResponse(3, 5, "b")},
			},
			onFetch: func(page int) {
				if page == 2 {
					cancel()
				}
			},
		}
		s := newTestSession(t, transport, 10)

		result, err := s.Run(ctx)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, domain.HarvestCancelled, result.Status)
		assert.Equal(t, []string{"a", "b"}, result.Fragments)
		assert.Equal(t, []int{1, 2}, transport.pages)
	})

	t.Run("fetch failing because of cancellation is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		transport := &scriptedTransport{
			steps:   []step{{err: context.Canceled}},
			onFetch: func(int) { cancel() },
		}
		s := newTestSession(t, transport, 10)

		result, err := s.Run(ctx)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, domain.HarvestCancelled, result.Status)
	})
}

func TestSession_RunsOnce(t *testing.T) {
	s := newTestSession(t, &scriptedTransport{}, 10)

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	assert.ErrorIs(t, err, ErrSessionFinished)
}

func TestSession_WithSourceName(t *testing.T) {
	s := newTestSession(t, &scriptedTransport{}, 10, WithSourceName("ghe"))

	result, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ghe", result.Source)
}

func TestSession_ConcurrentSessionsAreIndependent(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]*domain.HarvestResult, 4)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			transport := &scriptedTransport{steps: []step{
				{resp: pagedResponse(2, 3, fmt.Sprintf("s%d-a", i))},
				{resp: okPage(fmt.Sprintf("s%d-b", i))},
			}}
			s, err := NewSession(context.Background(), "test", 10, &mockTokenProvider{token: "lol"}, transport)
			if err != nil {
				return
			}
			results[i], _ = s.Run(context.Background())
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, []string{fmt.Sprintf("s%d-a", i), fmt.Sprintf("s%d-b", i)}, r.Fragments)
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "fetching", StateFetching.String())
	assert.Equal(t, "accumulating", StateAccumulating.String())
	assert.Equal(t, "retrying", StateRetrying.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
	assert.Equal(t, "state(42)", State(42).String())

	assert.True(t, StateDone.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateCancelled.Terminal())
	assert.False(t, StateRetrying.Terminal())
}
