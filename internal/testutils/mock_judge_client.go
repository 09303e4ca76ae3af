// Package testutils provides test doubles for the judge-scoring engine.
package testutils

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahrav/go-rubric/internal/domain"
	"github.com/ahrav/go-rubric/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.JudgeClient = (*MockJudgeClient)(nil)

// MockJudgeClient implements the JudgeClient interface with deterministic
// responses for consistent testing of the scoring pipeline. Responses are
// selected by substring matching against the payload prompt, and the mock
// can inject per-row errors, artificial latency, and track the peak number
// of concurrent requests.
type MockJudgeClient struct {
	mu sync.Mutex
	// responses maps prompt substrings to canned judge replies.
	responses map[string]string
	// errors maps prompt substrings to injected errors.
	errors map[string]error
	// defaultResponse is returned when no pattern matches.
	defaultResponse string
	// latency delays every request when set.
	latency time.Duration

	// calls counts Score invocations.
	calls atomic.Int64
	// inFlight tracks current concurrent requests.
	inFlight atomic.Int64
	// maxInFlight records the high-water mark of concurrent requests.
	maxInFlight atomic.Int64
}

// NewMockJudgeClient creates a mock that answers every request with a
// well-formed two-line score response unless configured otherwise.
func NewMockJudgeClient() *MockJudgeClient {
	return &MockJudgeClient{
		responses:       make(map[string]string),
		errors:          make(map[string]error),
		defaultResponse: "score: 4, justification: The output is mostly correct with minor omissions.",
	}
}

// AddResponse registers a canned reply for prompts containing pattern.
func (m *MockJudgeClient) AddResponse(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[pattern] = response
}

// AddError registers an injected error for prompts containing pattern.
func (m *MockJudgeClient) AddError(pattern string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[pattern] = err
}

// SetDefaultResponse changes the reply used when no pattern matches.
func (m *MockJudgeClient) SetDefaultResponse(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResponse = response
}

// SetLatency makes every request take at least d.
func (m *MockJudgeClient) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// Calls returns the number of Score invocations so far.
func (m *MockJudgeClient) Calls() int { return int(m.calls.Load()) }

// MaxInFlight returns the peak number of concurrent Score invocations,
// used to assert concurrency bounds.
func (m *MockJudgeClient) MaxInFlight() int { return int(m.maxInFlight.Load()) }

// Score implements ports.JudgeClient with deterministic pattern-matched
// responses.
func (m *MockJudgeClient) Score(ctx context.Context, modelURI string, payload domain.Payload) (domain.RawJudgeResponse, error) {
	m.calls.Add(1)

	current := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.maxInFlight.Load()
		if current <= peak || m.maxInFlight.CompareAndSwap(peak, current) {
			break
		}
	}

	m.mu.Lock()
	latency := m.latency
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-ctx.Done():
			return domain.RawJudgeResponse{}, ctx.Err()
		case <-time.After(latency):
		}
	}

	if ctx.Err() != nil {
		return domain.RawJudgeResponse{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for pattern, err := range m.errors {
		if strings.Contains(payload.Prompt, pattern) {
			return domain.RawJudgeResponse{}, err
		}
	}

	for pattern, response := range m.responses {
		if strings.Contains(payload.Prompt, pattern) {
			return domain.RawJudgeResponse{
				Candidates: []domain.Candidate{{Text: response}},
			}, nil
		}
	}

	return domain.RawJudgeResponse{
		Candidates: []domain.Candidate{{Text: m.defaultResponse}},
	}, nil
}
