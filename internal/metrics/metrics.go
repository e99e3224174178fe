// Package metrics provides Prometheus metrics for analyses, feedback and
// dictation.
package metrics

import (
	"time"

	"message-triage/internal/analysis"
	"message-triage/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

// TriageMetrics contains the Prometheus collectors of the triage service
type TriageMetrics struct {
	registry *prometheus.Registry

	analysesTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	verdictsTotal    *prometheus.CounterVec
	feedbackTotal    *prometheus.CounterVec
	dictationsTotal  *prometheus.CounterVec
}

// NewTriageMetrics creates and registers the triage metrics
func NewTriageMetrics(registry *prometheus.Registry) (*TriageMetrics, error) {
	m := &TriageMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *TriageMetrics) initMetrics() {
	m.analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_analyses_total",
			Help: "Total number of analysis attempts by outcome",
		},
		[]string{"outcome"}, // ok, input_rejected, transport_failure, schema_violation
	)

	m.analysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triage_analysis_duration_seconds",
			Help:    "Time spent waiting for the classifier",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		},
		[]string{"outcome"},
	)

	m.verdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_verdicts_total",
			Help: "Total number of valid verdicts by label",
		},
		[]string{"label"},
	)

	m.feedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_feedback_total",
			Help: "Total number of feedback entries by predicted and user label",
		},
		[]string{"predicted", "user"},
	)

	m.dictationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_dictations_total",
			Help: "Total number of dictation sessions by outcome",
		},
		[]string{"outcome"},
	)
}

func (m *TriageMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.analysesTotal,
		m.analysisDuration,
		m.verdictsTotal,
		m.feedbackTotal,
		m.dictationsTotal,
	}
}

// Describe implements the Collector interface
func (m *TriageMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *TriageMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// ObserveAnalysis implements analysis.Recorder
func (m *TriageMetrics) ObserveAnalysis(kind analysis.Kind, label models.Label, elapsed time.Duration) {
	outcome := kind.String()
	m.analysesTotal.WithLabelValues(outcome).Inc()
	if kind == analysis.KindInputRejected {
		return
	}
	m.analysisDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if kind == "" {
		m.verdictsTotal.WithLabelValues(string(label)).Inc()
	}
}

// ObserveFeedback records one user correction
func (m *TriageMetrics) ObserveFeedback(predicted, user models.Label) {
	m.feedbackTotal.WithLabelValues(string(predicted), string(user)).Inc()
}

// ObserveDictation implements dictation.Recorder
func (m *TriageMetrics) ObserveDictation(outcome string) {
	m.dictationsTotal.WithLabelValues(outcome).Inc()
}
