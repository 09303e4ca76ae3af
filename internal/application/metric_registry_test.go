package application

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-rubric/internal/domain"
)

func stubMetric(name string) domain.EvaluationMetric {
	return domain.EvaluationMetric{
		Name:    name,
		Version: "v1",
		Eval: func(ctx context.Context, outputs, inputs []string, gradingContext map[string][]string) (*domain.MetricValue, error) {
			return &domain.MetricValue{}, nil
		},
	}
}

func TestMetricRegistry_Register(t *testing.T) {
	tests := []struct {
		name          string
		metric        domain.EvaluationMetric
		expectedError string
	}{
		{
			name:   "valid metric registers",
			metric: stubMetric("answer_correctness"),
		},
		{
			name:          "empty name rejected",
			metric:        stubMetric(""),
			expectedError: "metric name cannot be empty",
		},
		{
			name:          "nil eval function rejected",
			metric:        domain.EvaluationMetric{Name: "hollow"},
			expectedError: `metric "hollow" has no eval function`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewMetricRegistry()

			err := registry.Register(tt.metric)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.True(t, domain.IsKind(err, domain.KindConfig))
				return
			}

			require.NoError(t, err)
			got, err := registry.Get(tt.metric.Name)
			require.NoError(t, err)
			assert.Equal(t, tt.metric.Name, got.Name)
		})
	}
}

func TestMetricRegistry_DuplicateName(t *testing.T) {
	registry := NewMetricRegistry()
	require.NoError(t, registry.Register(stubMetric("relevance")))

	err := registry.Register(stubMetric("relevance"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), `metric "relevance" is already registered`)
}

func TestMetricRegistry_GetUnknown(t *testing.T) {
	registry := NewMetricRegistry()

	_, err := registry.Get("missing")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `metric "missing" is not registered`)
	assert.True(t, domain.IsKind(err, domain.KindConfig))
}

func TestMetricRegistry_ListIsSorted(t *testing.T) {
	registry := NewMetricRegistry()
	for _, name := range []string{"relevance", "answer_correctness", "coherence"} {
		require.NoError(t, registry.Register(stubMetric(name)))
	}

	assert.Equal(t, []string{"answer_correctness", "coherence", "relevance"}, registry.List())
}

func TestMetricRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewMetricRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("metric-%d", i)
			require.NoError(t, registry.Register(stubMetric(name)))
			_, err := registry.Get(name)
			assert.NoError(t, err)
			registry.List()
		}()
	}
	wg.Wait()

	assert.Len(t, registry.List(), 16)
}
