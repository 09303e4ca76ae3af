package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRateLimitMiddleware_AllowsBurst(t *testing.T) {
	mock := NewMockCoreLLM()
	wrapped := RateLimitMiddleware(rate.Limit(1), 3)(mock)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, _, _, err := wrapped.DoRequest(context.Background(), "test prompt", nil)
		require.NoError(t, err)
	}

	assert.Less(t, time.Since(start), 500*time.Millisecond,
		"burst capacity must admit the first requests without waiting")
	assert.Equal(t, 3, mock.GetCallCount())
}

func TestRateLimitMiddleware_PacesBeyondBurst(t *testing.T) {
	mock := NewMockCoreLLM()
	wrapped := RateLimitMiddleware(rate.Limit(20), 1)(mock)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, _, _, err := wrapped.DoRequest(context.Background(), "test prompt", nil)
		require.NoError(t, err)
	}

	// Two of the three requests must wait for tokens at 20 req/s.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRateLimitMiddleware_CancelledWhileWaiting(t *testing.T) {
	mock := NewMockCoreLLM()
	wrapped := RateLimitMiddleware(rate.Limit(0.1), 1)(mock)

	// Consume the single burst token.
	_, _, _, err := wrapped.DoRequest(context.Background(), "test prompt", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, _, err = wrapped.DoRequest(ctx, "test prompt", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Equal(t, 1, mock.GetCallCount(),
		"a cancelled wait must not reach the provider")
}

func TestRateLimitMiddleware_SharedAcrossWrappedClients(t *testing.T) {
	middleware := RateLimitMiddleware(rate.Limit(1), 1)
	first := NewMockCoreLLM()
	second := NewMockCoreLLM()
	wrappedFirst := middleware(first)
	wrappedSecond := middleware(second)

	_, _, _, err := wrappedFirst.DoRequest(context.Background(), "test prompt", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, _, err = wrappedSecond.DoRequest(ctx, "test prompt", nil)

	require.Error(t, err, "both wrapped clients share one token bucket")
	assert.Zero(t, second.GetCallCount())
}
