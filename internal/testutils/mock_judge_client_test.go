package testutils

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-rubric/internal/domain"
)

func TestMockJudgeClient_DefaultResponse(t *testing.T) {
	client := NewMockJudgeClient()

	response, err := client.Score(context.Background(), "openai:/gpt-4",
		domain.Payload{Prompt: "anything"})
	require.NoError(t, err)

	assert.Contains(t, response.FirstText(), "score: 4")
	assert.Equal(t, 1, client.Calls())
}

func TestMockJudgeClient_PatternMatching(t *testing.T) {
	client := NewMockJudgeClient()
	client.AddResponse("weather", "score: 5, justification: accurate forecast")
	client.AddError("broken", errors.New("injected failure"))

	response, err := client.Score(context.Background(), "openai:/gpt-4",
		domain.Payload{Prompt: "what is the weather like"})
	require.NoError(t, err)
	assert.Equal(t, "score: 5, justification: accurate forecast", response.FirstText())

	_, err = client.Score(context.Background(), "openai:/gpt-4",
		domain.Payload{Prompt: "this one is broken"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "injected failure")
}

func TestMockJudgeClient_LatencyRespectsContext(t *testing.T) {
	client := NewMockJudgeClient()
	client.SetLatency(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Score(ctx, "openai:/gpt-4", domain.Payload{Prompt: "p"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestMockJudgeClient_TracksConcurrency(t *testing.T) {
	client := NewMockJudgeClient()
	client.SetLatency(20 * time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Score(context.Background(), "openai:/gpt-4",
				domain.Payload{Prompt: "p"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, client.Calls())
	assert.GreaterOrEqual(t, client.MaxInFlight(), 2,
		"overlapping requests should register as concurrent")
	assert.LessOrEqual(t, client.MaxInFlight(), 5)
}
