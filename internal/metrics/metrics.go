// Package metrics provides Prometheus metrics for the rewriting pipeline
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline. A nil *Metrics
// records nothing.
type Metrics struct {
	// Plan metrics
	PlansTotal   *prometheus.CounterVec
	PlanDuration *prometheus.HistogramVec
	ResultSize   prometheus.Histogram

	// Expansion metrics
	TermsExpandedTotal *prometheus.CounterVec
	MarkersTotal       *prometheus.CounterVec

	// Rewrite metrics
	RuleRewritesTotal *prometheus.CounterVec

	Registry *prometheus.Registry
}

// New creates all metrics and registers them on reg. A nil reg gets a
// fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	m := &Metrics{Registry: reg}

	m.PlansTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrewrite_plans_total",
			Help: "Total number of planned queries",
		},
		[]string{"status"},
	)

	m.PlanDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qrewrite_phase_duration_seconds",
			Help:    "Duration of pipeline phases in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"phase"},
	)

	m.ResultSize = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qrewrite_result_ids",
			Help:    "Number of document ids selected per constrained query",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	m.TermsExpandedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrewrite_terms_expanded_total",
			Help: "Total number of expanded terms by outcome",
		},
		[]string{"outcome"},
	)

	m.MarkersTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrewrite_markers_total",
			Help: "Total number of markers present in rewritten trees by kind",
		},
		[]string{"kind"},
	)

	m.RuleRewritesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrewrite_rule_rewrites_total",
			Help: "Total number of nodes replaced by rewrite rules",
		},
		[]string{"rule"},
	)

	return m
}

// RecordPlan records a finished plan with its status
func (m *Metrics) RecordPlan(status string) {
	if m == nil {
		return
	}
	m.PlansTotal.WithLabelValues(status).Inc()
}

// RecordPhase records the duration of one pipeline phase
func (m *Metrics) RecordPhase(phase string, duration time.Duration) {
	if m == nil {
		return
	}
	m.PlanDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordTerm records one expanded term
func (m *Metrics) RecordTerm(outcome string) {
	if m == nil {
		return
	}
	m.TermsExpandedTotal.WithLabelValues(outcome).Inc()
}

// RecordMarker records one marker of kind
func (m *Metrics) RecordMarker(kind string) {
	if m == nil {
		return
	}
	m.MarkersTotal.WithLabelValues(kind).Inc()
}

// RecordRewrites adds n rewrites by rule
func (m *Metrics) RecordRewrites(rule string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RuleRewritesTotal.WithLabelValues(rule).Add(float64(n))
}

// RecordResult records the size of a constrained result
func (m *Metrics) RecordResult(size int) {
	if m == nil {
		return
	}
	m.ResultSize.Observe(float64(size))
}
