// Package metrics records harvest activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives harvest events. Implementations must be goroutine-safe.
type Recorder interface {
	// PageFetched counts a fetch attempt for a source.
	PageFetched(source string)

	// Outcome counts a classified response (success, retry, error).
	Outcome(source, outcome string)

	// Fragments adds collected fragments for a source.
	Fragments(source string, n int)

	// HarvestFinished observes a completed harvest.
	HarvestFinished(source, status string, d time.Duration)
}

// Nop discards every event.
type Nop struct{}

func (Nop) PageFetched(string)                            {}
func (Nop) Outcome(string, string)                        {}
func (Nop) Fragments(string, int)                         {}
func (Nop) HarvestFinished(string, string, time.Duration) {}

// Prometheus is a Recorder backed by Prometheus collectors.
type Prometheus struct {
	PagesFetched    *prometheus.CounterVec
	Outcomes        *prometheus.CounterVec
	FragmentsTotal  *prometheus.CounterVec
	HarvestDuration *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg.
// A nil reg uses the default registerer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &Prometheus{
		PagesFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_pages_fetched_total",
				Help: "Total number of page fetch attempts.",
			},
			[]string{"source"},
		),
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_outcomes_total",
				Help: "Total number of classified responses by outcome.",
			},
			[]string{"source", "outcome"}, // outcome: success, retry, error
		),
		FragmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_fragments_total",
				Help: "Total number of fragments collected.",
			},
			[]string{"source"},
		),
		HarvestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_harvest_duration_seconds",
				Help:    "Duration of harvest runs.",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"source", "status"},
		),
	}

	reg.MustRegister(p.PagesFetched, p.Outcomes, p.FragmentsTotal, p.HarvestDuration)
	return p
}

// PageFetched implements Recorder.
func (p *Prometheus) PageFetched(source string) {
	p.PagesFetched.WithLabelValues(source).Inc()
}

// Outcome implements Recorder.
func (p *Prometheus) Outcome(source, outcome string) {
	p.Outcomes.WithLabelValues(source, outcome).Inc()
}

// Fragments implements Recorder.
func (p *Prometheus) Fragments(source string, n int) {
	if n <= 0 {
		return
	}
	p.FragmentsTotal.WithLabelValues(source).Add(float64(n))
}

// HarvestFinished implements Recorder.
func (p *Prometheus) HarvestFinished(source, status string, d time.Duration) {
	p.HarvestDuration.WithLabelValues(source, status).Observe(d.Seconds())
}

// Handler returns an HTTP handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
