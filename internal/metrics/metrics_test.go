package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.PageFetched("githubcode")
	p.PageFetched("githubcode")
	p.Outcome("githubcode", "success")
	p.Outcome("githubcode", "retry")
	p.Fragments("githubcode", 3)
	p.Fragments("githubcode", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.PagesFetched.WithLabelValues("githubcode")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Outcomes.WithLabelValues("githubcode", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Outcomes.WithLabelValues("githubcode", "retry")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.FragmentsTotal.WithLabelValues("githubcode")))
}

func TestPrometheus_HarvestFinished(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.HarvestFinished("githubcode", "done", 2*time.Second)

	assert.Equal(t, 1, testutil.CollectAndCount(p.HarvestDuration))
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)
	p.PageFetched("githubcode")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "harvester_pages_fetched_total")
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.PageFetched("a")
	r.Outcome("a", "success")
	r.Fragments("a", 1)
	r.HarvestFinished("a", "done", time.Second)
}
