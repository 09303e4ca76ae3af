// Package ports defines the interface contracts between the scoring
// engine's application core and its infrastructure adapters.
//
// Following hexagonal architecture, the application layer depends only on
// these interfaces; concrete LLM providers, metrics backends, and test
// doubles live in infrastructure packages and satisfy them.
package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-rubric/internal/domain"
)

// JudgeClient sends a fully rendered scoring payload to a judge model and
// returns its raw completion.
//
// Implementations must be safe for concurrent use: the scorer dispatches
// many Score calls in parallel. Transport failures are reported through
// the error return; implementations that can classify a failure should
// return an error implementing domain.SeverityError so the scorer can
// distinguish fatal conditions (bad credentials, malformed requests) from
// row-local recoverable ones.
type JudgeClient interface {
	// Score submits payload to the model identified by modelURI
	// ("provider:/model-name") and returns the raw response. The context
	// bounds the individual request; implementations must honor
	// cancellation.
	Score(ctx context.Context, modelURI string, payload domain.Payload) (domain.RawJudgeResponse, error)
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like judge failures, parse
	// fallbacks, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like in-flight judge requests.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like scores or response
	// sizes.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
