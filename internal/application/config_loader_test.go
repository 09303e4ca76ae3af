package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-rubric/internal/domain"
	"github.com/ahrav/go-rubric/internal/testutils"
)

const metricConfigYAML = `
metrics:
  - name: answer_correctness
    definition: Correctness measures factual agreement with the reference.
    grading_prompt: "Score 1: wrong. Score 5: fully correct."
    model: "anthropic:/claude-3-5-sonnet-20241022"
    grading_context_columns:
      - targets
    aggregations:
      - mean
      - p90
    greater_is_better: true
    max_workers: 4
    judge_request_timeout: 30s
    examples:
      - input: What is MLOps?
        output: MLOps is DevOps for machine learning.
        score: 4
        justification: Accurate but brief.
        grading_context:
          targets: MLOps covers the ML lifecycle in production.
  - name: relevance
    definition: Relevance measures how on-topic the output is.
    grading_prompt: "Score 1 to 5."
`

func TestLoadMetricConfigs(t *testing.T) {
	configs, err := LoadMetricConfigs([]byte(metricConfigYAML))
	require.NoError(t, err)
	require.Len(t, configs, 2)

	correctness := configs[0]
	assert.Equal(t, "answer_correctness", correctness.Name)
	assert.Equal(t, "anthropic:/claude-3-5-sonnet-20241022", correctness.ModelURI)
	assert.Equal(t, []string{"targets"}, correctness.GradingContextColumns)
	assert.Equal(t, []domain.AggregateOption{domain.AggregateMean, domain.AggregateP90}, correctness.Aggregations)
	assert.True(t, correctness.GreaterIsBetter)
	assert.Equal(t, 4, correctness.MaxWorkers)
	assert.Equal(t, 30*time.Second, correctness.RequestTimeout)
	require.Len(t, correctness.Examples, 1)
	assert.Equal(t, 4, correctness.Examples[0].Score)
	assert.Equal(t, "MLOps covers the ML lifecycle in production.",
		correctness.Examples[0].GradingContext["targets"])

	// The second entry omits the optional fields and picks up defaults.
	relevance := configs[1]
	assert.Equal(t, LatestMetricVersion, relevance.Version)
	assert.Equal(t, "openai:/gpt-4", relevance.ModelURI)
	assert.Equal(t, domain.DefaultAggregations(), relevance.Aggregations)
	assert.Equal(t, 0.0, relevance.Parameters["temperature"])
}

func TestLoadMetricConfigs_Errors(t *testing.T) {
	tests := []struct {
		name          string
		data          string
		expectedError string
	}{
		{
			name:          "malformed yaml",
			data:          "metrics: [",
			expectedError: "failed to parse metric configuration",
		},
		{
			name:          "empty document",
			data:          "",
			expectedError: "declares no metrics",
		},
		{
			name: "entry without name",
			data: `
metrics:
  - definition: def
    grading_prompt: rubric
`,
			expectedError: "metric configuration entry has no name",
		},
		{
			name: "duplicate names",
			data: `
metrics:
  - name: relevance
    definition: def
    grading_prompt: rubric
  - name: relevance
    definition: def
    grading_prompt: rubric
`,
			expectedError: `metric "relevance" is declared more than once`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMetricConfigs([]byte(tt.data))

			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.KindConfig))
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}

func TestParseMetricConfig(t *testing.T) {
	var node yaml.Node
	err := yaml.Unmarshal([]byte(`
name: coherence
definition: Coherence measures logical flow.
grading_prompt: "Score 1 to 5."
`), &node)
	require.NoError(t, err)

	config, err := ParseMetricConfig(node)
	require.NoError(t, err)

	assert.Equal(t, "coherence", config.Name)
	assert.Equal(t, LatestMetricVersion, config.Version)
	assert.Equal(t, "openai:/gpt-4", config.ModelURI)
}

func TestBuildMetricsFromConfig(t *testing.T) {
	client := testutils.NewMockJudgeClient()

	registry, err := BuildMetricsFromConfig(client, []byte(metricConfigYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"answer_correctness", "relevance"}, registry.List())

	metric, err := registry.Get("answer_correctness")
	require.NoError(t, err)
	assert.Equal(t, "v1", metric.Version)
}

func TestBuildMetricsFromConfig_InvalidDefinitionFailsLoad(t *testing.T) {
	client := testutils.NewMockJudgeClient()
	data := `
metrics:
  - name: broken
    definition: def
    grading_prompt: rubric
    aggregations:
      - p95
`

	_, err := BuildMetricsFromConfig(client, []byte(data), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid aggregate option "p95"`)
}
