package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-rubric/internal/domain"
	"github.com/ahrav/go-rubric/internal/testutils"
)

func correctnessConfig() GenAIMetricConfig {
	return DefaultGenAIMetricConfig(
		"answer_correctness",
		"Correctness measures how factually accurate the output is relative to the reference.",
		"Score 1: completely wrong. Score 3: partially correct. Score 5: fully correct.")
}

func TestMakeGenAIMetric_Validation(t *testing.T) {
	client := testutils.NewMockJudgeClient()

	tests := []struct {
		name          string
		mutate        func(c *GenAIMetricConfig)
		expectedError string
	}{
		{
			name:   "default config is valid",
			mutate: func(c *GenAIMetricConfig) {},
		},
		{
			name:          "missing name",
			mutate:        func(c *GenAIMetricConfig) { c.Name = "" },
			expectedError: "metric configuration validation failed",
		},
		{
			name:          "missing definition",
			mutate:        func(c *GenAIMetricConfig) { c.Definition = "" },
			expectedError: "metric configuration validation failed",
		},
		{
			name:          "missing grading prompt",
			mutate:        func(c *GenAIMetricConfig) { c.GradingPrompt = "" },
			expectedError: "metric configuration validation failed",
		},
		{
			name:          "unknown prompt version",
			mutate:        func(c *GenAIMetricConfig) { c.Version = "v9" },
			expectedError: `unsupported metric version "v9"`,
		},
		{
			name: "unknown aggregation",
			mutate: func(c *GenAIMetricConfig) {
				c.Aggregations = []domain.AggregateOption{"p95"}
			},
			expectedError: `invalid aggregate option "p95"`,
		},
		{
			name:          "model URI without provider separator",
			mutate:        func(c *GenAIMetricConfig) { c.ModelURI = "gpt-4" },
			expectedError: "scorer configuration validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := correctnessConfig()
			tt.mutate(&config)

			metric, err := MakeGenAIMetric(client, config, nil)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.True(t, domain.IsFatal(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "answer_correctness", metric.Name)
			assert.Equal(t, "v1", metric.Version)
			assert.True(t, metric.GreaterIsBetter)
			require.NotNil(t, metric.Eval)
		})
	}
}

func TestMakeGenAIMetric_NilClient(t *testing.T) {
	_, err := MakeGenAIMetric(nil, correctnessConfig(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "judge client cannot be nil")
}

func TestMakeGenAIMetric_DefaultsApplied(t *testing.T) {
	client := testutils.NewMockJudgeClient()

	// A minimal config with only the identity fields set still builds,
	// picking up the standard judge configuration.
	config := GenAIMetricConfig{
		Name:          "relevance",
		Definition:    "Relevance measures how on-topic the output is.",
		GradingPrompt: "Score 1 to 5.",
	}

	metric, err := MakeGenAIMetric(client, config, nil)
	require.NoError(t, err)

	assert.Equal(t, LatestMetricVersion, metric.Version)
	assert.False(t, metric.GreaterIsBetter,
		"the zero value is kept; use DefaultGenAIMetricConfig for the usual direction")

	// MetricDetails carries the full rendered grading prompt, not just
	// the definition that seeded it.
	assert.Contains(t, metric.MetricDetails, "Metric definition:\nRelevance measures")
	assert.Contains(t, metric.MetricDetails, "Grading rubric:\nScore 1 to 5.")
	assert.Contains(t, metric.MetricDetails, "{{.Input}}")

	value, err := metric.Eval(context.Background(), []string{"out"}, []string{"in"}, nil)
	require.NoError(t, err)
	require.Len(t, value.Scores, 1)
	assert.Len(t, value.Aggregates, len(domain.DefaultAggregations()))
}

func TestGenAIMetric_EvalScoresBatch(t *testing.T) {
	client := testutils.NewMockJudgeClient()
	client.AddResponse("first question", `{"score": 5, "justification": "matches the reference exactly"}`)
	client.AddResponse("second question", "score: 2, justification: contradicts the reference")

	config := correctnessConfig()
	config.GradingContextColumns = []string{"targets"}

	metric, err := MakeGenAIMetric(client, config, nil)
	require.NoError(t, err)

	value, err := metric.Eval(context.Background(),
		[]string{"answer one", "answer two"},
		[]string{"first question", "second question"},
		map[string][]string{"targets": {"reference one", "reference two"}})
	require.NoError(t, err)

	require.Len(t, value.Scores, 2)
	require.Len(t, value.Justifications, 2)

	require.NotNil(t, value.Scores[0])
	assert.Equal(t, 5, *value.Scores[0])
	assert.Equal(t, "matches the reference exactly", value.Justifications[0])

	require.NotNil(t, value.Scores[1])
	assert.Equal(t, 2, *value.Scores[1])
	assert.Equal(t, "contradicts the reference", value.Justifications[1])

	assert.InDelta(t, 3.5, value.Aggregates[domain.AggregateMean], 1e-9)
	assert.InDelta(t, 2.25, value.Aggregates[domain.AggregateVariance], 1e-9)
	assert.InDelta(t, 4.7, value.Aggregates[domain.AggregateP90], 1e-9)
}

func TestGenAIMetric_EvalInputValidation(t *testing.T) {
	client := testutils.NewMockJudgeClient()

	config := correctnessConfig()
	config.GradingContextColumns = []string{"targets"}

	metric, err := MakeGenAIMetric(client, config, nil)
	require.NoError(t, err)

	tests := []struct {
		name           string
		outputs        []string
		inputs         []string
		gradingContext map[string][]string
		expectedError  string
	}{
		{
			name:          "length mismatch",
			outputs:       []string{"a", "b"},
			inputs:        []string{"x"},
			expectedError: "outputs and inputs must have the same length, got 2 outputs and 1 inputs",
		},
		{
			name:    "missing grading context column",
			outputs: []string{"a"},
			inputs:  []string{"x"},
			gradingContext: map[string][]string{
				"sources": {"doc"},
			},
			expectedError: `grading context column "targets" was not provided, available columns: [sources]`,
		},
		{
			name:    "grading context column length mismatch",
			outputs: []string{"a", "b"},
			inputs:  []string{"x", "y"},
			gradingContext: map[string][]string{
				"targets": {"only one"},
			},
			expectedError: `grading context column "targets" has 1 values but there are 2 rows`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := metric.Eval(context.Background(), tt.outputs, tt.inputs, tt.gradingContext)

			require.Error(t, err)
			assert.Nil(t, value)
			assert.True(t, domain.IsKind(err, domain.KindConfig))
			assert.Contains(t, err.Error(), tt.expectedError)
			assert.Zero(t, client.Calls(), "validation failures must precede judge calls")
		})
	}
}

func TestGenAIMetric_UnparseableRowsExcludedFromAggregates(t *testing.T) {
	client := testutils.NewMockJudgeClient()
	client.AddResponse("second question", "no structured score here")

	metric, err := MakeGenAIMetric(client, correctnessConfig(), nil)
	require.NoError(t, err)

	value, err := metric.Eval(context.Background(),
		[]string{"a", "b"},
		[]string{"first question", "second question"},
		nil)
	require.NoError(t, err)

	require.Len(t, value.Scores, 2)
	assert.NotNil(t, value.Scores[0])
	assert.Nil(t, value.Scores[1])
	assert.Contains(t, value.Justifications[1], "Failed to extract score and justification")

	// Aggregates reflect only the one parsed score.
	assert.InDelta(t, 4.0, value.Aggregates[domain.AggregateMean], 1e-9)
	assert.InDelta(t, 0.0, value.Aggregates[domain.AggregateVariance], 1e-9)
}

func TestGenAIMetric_ConfigOverrides(t *testing.T) {
	client := testutils.NewMockJudgeClient()

	config := correctnessConfig()
	config.ModelURI = "anthropic:/claude-3-5-sonnet-20241022"
	config.MaxWorkers = 2
	config.RequestTimeout = 5 * time.Second
	config.Aggregations = []domain.AggregateOption{domain.AggregateMedian, domain.AggregateMax}

	metric, err := MakeGenAIMetric(client, config, nil)
	require.NoError(t, err)

	value, err := metric.Eval(context.Background(),
		[]string{"a", "b", "c"}, []string{"x", "y", "z"}, nil)
	require.NoError(t, err)

	require.Len(t, value.Aggregates, 2)
	assert.Contains(t, value.Aggregates, domain.AggregateMedian)
	assert.Contains(t, value.Aggregates, domain.AggregateMax)
	assert.NotContains(t, value.Aggregates, domain.AggregateMean)
}

func TestGradingTemplateForVersion(t *testing.T) {
	template, err := gradingTemplateForVersion("v1", "coherence", "def", "rubric", nil)
	require.NoError(t, err)
	assert.Contains(t, template, "coherence")
	assert.Contains(t, template, "{{.Input}}")

	_, err = gradingTemplateForVersion("v2", "coherence", "def", "rubric", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported metric version "v2", supported versions are: v1`)
}
