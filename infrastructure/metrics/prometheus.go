// Package metrics provides the Prometheus implementation of the
// MetricsCollector port for the judge-scoring engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-rubric/internal/ports"
)

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It provides real-time monitoring of judge request latency,
// outcomes, token consumption, and per-batch scoring coverage.
type PrometheusMetrics struct {
	requestLatency *prometheus.HistogramVec
	requestCounter *prometheus.CounterVec
	tokensUsed     *prometheus.CounterVec
	parseFailures  *prometheus.CounterVec
	batchRows      *prometheus.HistogramVec
	systemGauges   *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and
// registers all required metrics in the given registerer. Pass
// prometheus.DefaultRegisterer to use the global registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		requestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "judge_request_duration_seconds",
				Help:    "Latency of individual judge model requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "model", "outcome"},
		),
		requestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "judge_requests_total",
				Help: "Total number of judge model requests by outcome.",
			},
			[]string{"model", "outcome"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "judge_tokens_total",
				Help: "Total number of tokens consumed by judge requests.",
			},
			[]string{"model", "token_type"},
		),
		parseFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "judge_parse_failures_total",
				Help: "Judge responses from which no score could be extracted.",
			},
			[]string{"metric", "model"},
		),
		batchRows: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "judge_batch_rows",
				Help:    "Row counts per scoring batch, total and scored.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"metric", "kind"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "judge_system_state",
				Help: "Current system state values for the scoring engine.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.requestLatency.WithLabelValues(
		operation,
		labelOr(labels, "model", "unknown"),
		labelOr(labels, "outcome", "unknown"),
	).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "judge_requests_total", "llm_requests_total":
		pm.requestCounter.WithLabelValues(
			labelOr(labels, "model", "unknown"),
			outcomeLabel(labels),
		).Add(value)
	case "llm_tokens_total":
		pm.tokensUsed.WithLabelValues(
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "token_type", "unknown"),
		).Add(value)
	case "judge_parse_failures_total":
		pm.parseFailures.WithLabelValues(
			labelOr(labels, "metric", "unknown"),
			labelOr(labels, "model", "unknown"),
		).Add(value)
	default:
		pm.requestCounter.WithLabelValues(metric, outcomeLabel(labels)).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "judge_batch_scored_rows":
		pm.batchRows.WithLabelValues(labelOr(labels, "metric", "unknown"), "scored").Observe(value)
	case "judge_batch_total_rows":
		pm.batchRows.WithLabelValues(labelOr(labels, "metric", "unknown"), "total").Observe(value)
	default:
		pm.batchRows.WithLabelValues(metric, "value").Observe(value)
	}
}

func labelOr(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return fallback
}

// outcomeLabel accepts either the scorer's "outcome" label or the llm
// middleware's "status" label.
func outcomeLabel(labels map[string]string) string {
	if v, ok := labels["outcome"]; ok && v != "" {
		return v
	}
	return labelOr(labels, "status", "unknown")
}
