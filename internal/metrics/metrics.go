// Package metrics holds the scanner's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the set of scanner collectors. A nil *Metrics records nothing,
// so components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	ScanCycles     *prometheus.CounterVec
	PairsEvaluated prometheus.Counter
	PairRejections *prometheus.CounterVec
	Opportunities  prometheus.Counter
	QuoteFailures  *prometheus.CounterVec
	ScanDuration   prometheus.Histogram
	LastScanPairs  prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg gets a
// fresh registry with the Go and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		)
	}
	m := &Metrics{
		registry: reg,
		ScanCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbscanner_scan_cycles_total",
				Help: "Scan cycles by outcome",
			},
			[]string{"outcome"},
		),
		PairsEvaluated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "arbscanner_pairs_evaluated_total",
				Help: "Candidate pairs run through the pipeline",
			},
		),
		PairRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbscanner_pair_rejections_total",
				Help: "Rejected pairs by pipeline stage and reason",
			},
			[]string{"stage", "reason"},
		),
		Opportunities: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "arbscanner_opportunities_total",
				Help: "Opportunities emitted",
			},
		),
		QuoteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbscanner_quote_failures_total",
				Help: "Quote fetch failures by exchange",
			},
			[]string{"exchange"},
		),
		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "arbscanner_scan_duration_seconds",
				Help:    "Wall-clock duration of a scan cycle",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		LastScanPairs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "arbscanner_last_scan_pairs",
				Help: "Candidate pairs in the most recent cycle",
			},
		),
	}
	reg.MustRegister(
		m.ScanCycles,
		m.PairsEvaluated,
		m.PairRejections,
		m.Opportunities,
		m.QuoteFailures,
		m.ScanDuration,
		m.LastScanPairs,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CycleFinished(outcome string, pairs int, d time.Duration) {
	if m == nil {
		return
	}
	m.ScanCycles.WithLabelValues(outcome).Inc()
	m.ScanDuration.Observe(d.Seconds())
	m.LastScanPairs.Set(float64(pairs))
}

func (m *Metrics) PairEvaluated() {
	if m == nil {
		return
	}
	m.PairsEvaluated.Inc()
}

func (m *Metrics) PairRejected(stage, reason string) {
	if m == nil {
		return
	}
	m.PairRejections.WithLabelValues(stage, reason).Inc()
}

func (m *Metrics) OpportunityFound() {
	if m == nil {
		return
	}
	m.Opportunities.Inc()
}

func (m *Metrics) QuoteFailed(exchange string) {
	if m == nil {
		return
	}
	m.QuoteFailures.WithLabelValues(exchange).Inc()
}
