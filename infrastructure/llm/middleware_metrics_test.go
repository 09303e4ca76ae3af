package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingCollector records every metric call for assertions.
type capturingCollector struct {
	mu        sync.Mutex
	latencies []capturedMetric
	counters  []capturedMetric
}

type capturedMetric struct {
	name   string
	value  float64
	labels map[string]string
}

func (c *capturingCollector) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latencies = append(c.latencies, capturedMetric{operation, duration.Seconds(), copyLabels(labels)})
}

func (c *capturingCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters = append(c.counters, capturedMetric{metric, value, copyLabels(labels)})
}

func (c *capturingCollector) RecordGauge(metric string, value float64, labels map[string]string) {}

func (c *capturingCollector) RecordHistogram(metric string, value float64, labels map[string]string) {
}

func copyLabels(labels map[string]string) map[string]string {
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

func (c *capturingCollector) countersNamed(name string) []capturedMetric {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []capturedMetric
	for _, m := range c.counters {
		if m.name == name {
			out = append(out, m)
		}
	}
	return out
}

func TestMetricsMiddleware_RecordsSuccessfulRequest(t *testing.T) {
	mock := NewMockCoreLLM()
	collector := &capturingCollector{}
	wrapped := MetricsMiddleware("openai", collector)(mock)

	_, _, _, err := wrapped.DoRequest(context.Background(), "test prompt", nil)
	require.NoError(t, err)

	require.Len(t, collector.latencies, 1)
	assert.Equal(t, "llm_request", collector.latencies[0].name)
	assert.Equal(t, "openai", collector.latencies[0].labels["provider"])
	assert.Equal(t, "test-model", collector.latencies[0].labels["model"])
	assert.Equal(t, "success", collector.latencies[0].labels["status"])

	requests := collector.countersNamed("llm_requests_total")
	require.Len(t, requests, 1)
	assert.Equal(t, 1.0, requests[0].value)

	tokens := collector.countersNamed("llm_tokens_total")
	require.Len(t, tokens, 2)
	assert.Equal(t, "input", tokens[0].labels["token_type"])
	assert.Equal(t, 10.0, tokens[0].value)
	assert.Equal(t, "output", tokens[1].labels["token_type"])
	assert.Equal(t, 20.0, tokens[1].value)
}

func TestMetricsMiddleware_RecordsClassifiedFailure(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.Error = NewProviderError("openai", ErrorTypeRateLimit, 429, "slow down", nil)
	collector := &capturingCollector{}
	wrapped := MetricsMiddleware("openai", collector)(mock)

	_, _, _, err := wrapped.DoRequest(context.Background(), "test prompt", nil)
	require.Error(t, err)

	requests := collector.countersNamed("llm_requests_total")
	require.Len(t, requests, 1)
	assert.Equal(t, "rate_limit", requests[0].labels["status"])

	assert.Empty(t, collector.countersNamed("llm_tokens_total"),
		"failed requests produce no token counts")
}

func TestMetricsMiddleware_RecordsTimeout(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.ResponseDelay = 100 * time.Millisecond
	collector := &capturingCollector{}
	wrapped := MetricsMiddleware("openai", collector)(mock)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, _, err := wrapped.DoRequest(ctx, "test prompt", nil)
	require.Error(t, err)

	requests := collector.countersNamed("llm_requests_total")
	require.Len(t, requests, 1)
	assert.Equal(t, "timeout", requests[0].labels["status"])
}

func TestMetricsMiddleware_NilCollectorPassesThrough(t *testing.T) {
	mock := NewMockCoreLLM()
	wrapped := MetricsMiddleware("openai", nil)(mock)

	response, _, _, err := wrapped.DoRequest(context.Background(), "test prompt", nil)

	require.NoError(t, err)
	assert.Equal(t, "test response", response)
}
