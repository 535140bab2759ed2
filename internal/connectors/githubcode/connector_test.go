package githubcode

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// countingRecorder records calls for assertions.
type countingRecorder struct {
	pages     int
	outcomes  map[string]int
	fragments int
	finished  []string
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{outcomes: make(map[string]int)}
}

func (r *countingRecorder) PageFetched(string)        { r.pages++ }
func (r *countingRecorder) Outcome(_, o string)        { r.outcomes[o]++ }
func (r *countingRecorder) Fragments(_ string, n int) { r.fragments += n }
func (r *countingRecorder) HarvestFinished(_, status string, _ time.Duration) {
	r.finished = append(r.finished, status)
}

func TestConnector_Name(t *testing.T) {
	c := New(nil, &mockTokenProvider{token: "lol"})

	assert.Equal(t, SourceName, c.Name())
	assert.NotNil(t, c.Client())
}

func TestConnector_Harvest(t *testing.T) {
	t.Run("runs a session over the transport", func(t *testing.T) {
		transport := &scriptedTransport{steps: []step{
			{resp: pagedResponse(2, 3, "a")},
			{resp: &Response{StatusCode: http.StatusForbidden}},
			{resp: okPage("b")},
		}}
		recorder := newCountingRecorder()
		c := New(nil, &mockTokenProvider{token: "lol"},
			WithTransport(transport), WithConnectorRecorder(recorder))

		result, err := c.Harvest(context.Background(), "test", 10)

		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, result.Fragments)
		assert.Nil(t, c.Client())

		assert.Equal(t, 3, recorder.pages)
		assert.Equal(t, 2, recorder.outcomes["success"])
		assert.Equal(t, 1, recorder.outcomes["retry"])
		assert.Equal(t, 2, recorder.fragments)
		assert.Equal(t, []string{"done"}, recorder.finished)
	})

	t.Run("missing key fails before any fetch", func(t *testing.T) {
		transport := &scriptedTransport{}
		c := New(nil, &mockTokenProvider{}, WithTransport(transport))

		_, err := c.Harvest(context.Background(), "test", 10)

		assert.ErrorIs(t, err, ErrMissingKey)
		assert.Empty(t, transport.pages)
	})

	t.Run("max retries come from config", func(t *testing.T) {
		transport := &scriptedTransport{steps: []step{
			{resp: &Response{StatusCode: http.StatusForbidden}},
			{resp: &Response{StatusCode: http.StatusForbidden}},
		}}
		cfg := DefaultConfig()
		cfg.MaxRetries = 1
		c := New(cfg, &mockTokenProvider{token: "lol"}, WithTransport(transport))

		result, err := c.Harvest(context.Background(), "test", 10)

		require.NoError(t, err)
		assert.Equal(t, domain.HarvestFailed, result.Status)
		assert.Equal(t, 1, transport.backoffs)
	})

	t.Run("closed connector refuses work", func(t *testing.T) {
		c := New(nil, &mockTokenProvider{token: "lol"}, WithTransport(&scriptedTransport{}))
		require.NoError(t, c.Close())

		_, err := c.Harvest(context.Background(), "test", 10)

		assert.ErrorIs(t, err, ErrConnectorClosed)
	})
}

func TestConnector_HarvestOverHTTP(t *testing.T) {
	var pages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if page == "1" {
			w.Header().Set("Link", linkHeader(2, 3))
			_, _ = w.Write(pageBody("first"))
			return
		}
		_, _ = w.Write(pageBody("second"))
	}))
	defer server.Close()

	c := New(fastConfig(server.URL+"/"), &mockTokenProvider{token: "lol"})

	result, err := c.Harvest(context.Background(), "test", 10)

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, pages)
	assert.Equal(t, []string{"first", "second"}, result.Fragments)
	assert.Equal(t, domain.HarvestDone, result.Status)
}

func TestConnector_Validate(t *testing.T) {
	t.Run("returns the login", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"login":"octocat"}`))
		}))
		defer server.Close()
		c := New(fastConfig(server.URL+"/"), &mockTokenProvider{token: "lol"})

		login, err := c.Validate(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "octocat", login)
	})

	t.Run("bad credentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()
		c := New(fastConfig(server.URL+"/"), &mockTokenProvider{token: "lol"})

		_, err := c.Validate(context.Background())

		assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	})

	t.Run("missing key", func(t *testing.T) {
		c := New(nil, &mockTokenProvider{})

		_, err := c.Validate(context.Background())

		assert.ErrorIs(t, err, ErrMissingKey)
	})
}

func TestConnector_Quota(t *testing.T) {
	t.Run("reports code search quota", func(t *testing.T) {
		reset := time.Now().Add(time.Minute).Truncate(time.Second)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = fmt.Fprintf(w, `{"resources":{"code_search":{"limit":10,"remaining":4,"reset":%d}}}`, reset.Unix())
		}))
		defer server.Close()
		c := New(fastConfig(server.URL+"/"), &mockTokenProvider{token: "lol"})

		quota, err := c.Quota(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 10, quota.Limit)
		assert.Equal(t, 4, quota.Remaining)
		assert.True(t, reset.Equal(quota.ResetAt))
	})

	t.Run("custom transport has no API client", func(t *testing.T) {
		c := New(nil, &mockTokenProvider{token: "lol"}, WithTransport(&scriptedTransport{}))

		_, err := c.Quota(context.Background())
		assert.ErrorIs(t, err, ErrNoClient)

		_, err = c.Validate(context.Background())
		assert.ErrorIs(t, err, ErrNoClient)
	})
}
