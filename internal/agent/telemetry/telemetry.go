package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes recorded by RecordRun.
const (
	OutcomeComplete = "complete"
	OutcomeDegraded = "degraded"
	OutcomeOffline  = "offline"
	OutcomeCached   = "cached"
	OutcomeError    = "error"
	OutcomeAborted  = "aborted"
)

// Telemetry groups the pipeline's prometheus collectors. A nil *Telemetry is
// valid and records nothing.
type Telemetry struct {
	runs               *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
	synthesis          *prometheus.CounterVec
	searchFailures     *prometheus.CounterVec
	extractionFallback prometheus.Counter
	sourcesDiscovered  prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is convenient in tests.
func New(reg prometheus.Registerer) (*Telemetry, error) {
	t := &Telemetry{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remedy",
			Name:      "research_runs_total",
			Help:      "Research runs by terminal outcome.",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "remedy",
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45, 60},
		}, []string{"stage"}),
		synthesis: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remedy",
			Name:      "synthesis_total",
			Help:      "Reports synthesized by strategy.",
		}, []string{"strategy"}),
		searchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remedy",
			Name:      "search_failures_total",
			Help:      "Failed search queries by kind.",
		}, []string{"kind"}),
		extractionFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "remedy",
			Name:      "extraction_fallbacks_total",
			Help:      "Extraction batches that fell back to search snippets.",
		}),
		sourcesDiscovered: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "remedy",
			Name:      "sources_discovered",
			Help:      "Unique citations discovered per run.",
			Buckets:   prometheus.LinearBuckets(0, 2, 8),
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{t.runs, t.stageDuration, t.synthesis, t.searchFailures, t.extractionFallback, t.sourcesDiscovered} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

func (t *Telemetry) RecordRun(outcome string) {
	if t == nil {
		return
	}
	t.runs.WithLabelValues(outcome).Inc()
}

func (t *Telemetry) ObserveStage(stage string, d time.Duration) {
	if t == nil {
		return
	}
	t.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (t *Telemetry) RecordSynthesis(strategy string) {
	if t == nil {
		return
	}
	t.synthesis.WithLabelValues(strategy).Inc()
}

// RecordSearchFailure counts a failed query; credits failures are labeled apart.
func (t *Telemetry) RecordSearchFailure(credits bool) {
	if t == nil {
		return
	}
	kind := "other"
	if credits {
		kind = "credits"
	}
	t.searchFailures.WithLabelValues(kind).Inc()
}

func (t *Telemetry) RecordExtractionFallback() {
	if t == nil {
		return
	}
	t.extractionFallback.Inc()
}

func (t *Telemetry) ObserveSources(n int) {
	if t == nil {
		return
	}
	t.sourcesDiscovered.Observe(float64(n))
}
