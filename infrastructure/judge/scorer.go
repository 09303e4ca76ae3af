package judge

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-rubric/internal/domain"
	"github.com/ahrav/go-rubric/internal/ports"
)

// Default scoring configuration values.
const (
	// DefaultModelURI is the judge model used when none is configured.
	DefaultModelURI = "openai:/gpt-4"
	// DefaultMaxWorkers bounds concurrent judge requests per batch.
	DefaultMaxWorkers = 10
	// DefaultRequestTimeout bounds each judge request and, independently,
	// the wall-clock wait for the whole batch.
	DefaultRequestTimeout = 60 * time.Second
)

// Judge request outcome labels reported to the metrics collector.
const (
	outcomeSuccess          = "success"
	outcomeRecoverableError = "recoverable_error"
	outcomeFatalError       = "fatal_error"
)

// ScorerConfig defines the tunable parameters of a scoring run.
type ScorerConfig struct {
	// ModelURI identifies the judge model in "provider:/model" form,
	// e.g. "openai:/gpt-4". Defaults to DefaultModelURI.
	ModelURI string `yaml:"model" json:"model" validate:"required,contains=:/"`

	// MaxWorkers limits concurrent judge requests. Defaults to
	// DefaultMaxWorkers; never more workers than rows are started.
	MaxWorkers int `yaml:"max_workers" json:"max_workers" validate:"min=1,max=128"`

	// RequestTimeout bounds each individual judge request. The same
	// duration, measured from batch start, bounds the wait for all
	// results to arrive.
	RequestTimeout time.Duration `yaml:"judge_request_timeout" json:"judge_request_timeout" validate:"min=1000000"`
}

// withDefaults fills zero-valued fields with the package defaults.
func (c ScorerConfig) withDefaults() ScorerConfig {
	if c.ModelURI == "" {
		c.ModelURI = DefaultModelURI
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return c
}

// ConcurrentScorer scores evaluation rows against a judge model under
// bounded concurrency. Results are returned in row order regardless of
// completion order. The scorer is stateless across runs and safe for
// concurrent use.
type ConcurrentScorer struct {
	// metricName labels telemetry emitted for this metric.
	metricName string
	// client dispatches judge requests.
	client ports.JudgeClient
	// builder renders the grading payload per row.
	builder *PayloadBuilder
	// parser extracts score results from raw judge responses.
	parser *ResponseParser
	// config holds the validated scoring parameters.
	config ScorerConfig
	// metrics receives operational telemetry; nil disables collection.
	metrics ports.MetricsCollector
	// tracer emits spans for scoring runs.
	tracer trace.Tracer
	// inFlight counts judge requests currently in progress, across all
	// concurrent ScoreRows calls on this scorer.
	inFlight atomic.Int64
}

// NewConcurrentScorer creates a scorer for the named metric. Zero-valued
// config fields take package defaults before validation. metrics may be
// nil. Returns a ConfigError if dependencies are missing or the config is
// invalid.
func NewConcurrentScorer(
	metricName string,
	client ports.JudgeClient,
	builder *PayloadBuilder,
	config ScorerConfig,
	metrics ports.MetricsCollector,
) (*ConcurrentScorer, error) {
	if metricName == "" {
		return nil, domain.NewConfigError("metric name cannot be empty")
	}
	if client == nil {
		return nil, domain.NewConfigError("judge client cannot be nil")
	}
	if builder == nil {
		return nil, domain.NewConfigError("payload builder cannot be nil")
	}

	config = config.withDefaults()
	if err := validator.New().Struct(config); err != nil {
		return nil, domain.NewConfigError("scorer configuration validation failed: %v", err)
	}

	return &ConcurrentScorer{
		metricName: metricName,
		client:     client,
		builder:    builder,
		parser:     NewResponseParser(),
		config:     config,
		metrics:    metrics,
		tracer:     otel.Tracer("concurrent-scorer"),
	}, nil
}

// ScoreRows scores every row and returns one ScoreResult per row, in row
// order.
//
// All payloads are built before any judge request is dispatched, so a
// ContextError from a malformed dataset aborts the run without a single
// judge call. A recoverable judge failure degrades only its own row; a
// fatal one (bad credentials, malformed request) aborts the run. If the
// batch has not fully completed within RequestTimeout of dispatch, the
// run fails with a TimeoutError; requests still in flight are not
// cancelled, but their results are discarded.
func (s *ConcurrentScorer) ScoreRows(ctx context.Context, rows []domain.Row) ([]domain.ScoreResult, error) {
	ctx, span := s.tracer.Start(ctx, "ConcurrentScorer.ScoreRows",
		trace.WithAttributes(
			attribute.String("judge.model", s.config.ModelURI),
			attribute.String("judge.metric", s.metricName),
			attribute.Int("judge.rows", len(rows)),
			attribute.Int("judge.max_workers", s.config.MaxWorkers),
		))
	defer span.End()

	if len(rows) == 0 {
		return []domain.ScoreResult{}, nil
	}

	payloads := make([]domain.Payload, len(rows))
	for i, row := range rows {
		payload, err := s.builder.Build(row)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		payloads[i] = payload
	}

	start := time.Now()
	results := make([]domain.ScoreResult, len(rows))
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(s.config.MaxWorkers, len(rows)))

	// The batch budget is measured from batch start. With more rows than
	// workers, g.Go blocks on the concurrency limit, so submission runs
	// off the main goroutine and the timer starts before it.
	batchTimer := time.NewTimer(s.config.RequestTimeout)
	defer batchTimer.Stop()

	done := make(chan error, 1)
	go func() {
		for i := range rows {
			g.Go(func() error {
				result, err := s.scoreOne(gctx, payloads[i])
				if err != nil {
					return err
				}
				// Each task owns exactly one slot, so no lock is needed.
				results[i] = result
				completed.Add(1)
				return nil
			})
		}
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	case <-batchTimer.C:
		outstanding := len(rows) - int(completed.Load())
		err := domain.NewTimeoutError(outstanding, len(rows))
		span.RecordError(err)
		return nil, err
	}

	scored := 0
	for _, result := range results {
		if result.Score != nil {
			scored++
		}
	}
	if s.metrics != nil {
		labels := map[string]string{"metric": s.metricName, "model": s.config.ModelURI}
		s.metrics.RecordLatency("judge_batch", time.Since(start), labels)
		s.metrics.RecordHistogram("judge_batch_scored_rows", float64(scored), labels)
		s.metrics.RecordHistogram("judge_batch_total_rows", float64(len(rows)), labels)
	}
	span.SetAttributes(
		attribute.Int("judge.scored", scored),
		attribute.Int64("judge.latency_ms", time.Since(start).Milliseconds()),
	)

	return results, nil
}

// scoreOne sends a single payload to the judge and parses the response.
// Recoverable failures are folded into the returned ScoreResult; only
// fatal errors are returned, which aborts the batch.
func (s *ConcurrentScorer) scoreOne(ctx context.Context, payload domain.Payload) (domain.ScoreResult, error) {
	if s.metrics != nil {
		labels := map[string]string{"metric": s.metricName, "model": s.config.ModelURI}
		s.metrics.RecordGauge("judge_in_flight_requests", float64(s.inFlight.Add(1)), labels)
		defer func() {
			s.metrics.RecordGauge("judge_in_flight_requests", float64(s.inFlight.Add(-1)), labels)
		}()
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	start := time.Now()
	response, err := s.client.Score(reqCtx, s.config.ModelURI, payload)
	elapsed := time.Since(start)

	if err != nil {
		if domain.IsFatal(err) {
			s.recordRequest(outcomeFatalError, elapsed)
			return domain.ScoreResult{}, err
		}
		s.recordRequest(outcomeRecoverableError, elapsed)
		return domain.ScoreResult{
			Justification: fmt.Sprintf("Failed to score model on payload. Error: %s", err.Error()),
		}, nil
	}
	s.recordRequest(outcomeSuccess, elapsed)

	result := s.parser.Parse(response)
	if result.Score == nil && s.metrics != nil {
		s.metrics.RecordCounter("judge_parse_failures_total", 1,
			map[string]string{"metric": s.metricName, "model": s.config.ModelURI})
	}
	return result, nil
}

func (s *ConcurrentScorer) recordRequest(outcome string, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	labels := map[string]string{
		"metric":  s.metricName,
		"model":   s.config.ModelURI,
		"outcome": outcome,
	}
	s.metrics.RecordLatency("judge_request", elapsed, labels)
	s.metrics.RecordCounter("judge_requests_total", 1, labels)
}
