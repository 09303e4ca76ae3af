// Package application assembles domain types and infrastructure adapters
// into usable evaluation metrics: the LLM-as-judge metric factory, the
// grading prompt version registry, and the named metric registry.
package application

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-rubric/infrastructure/judge"
	"github.com/ahrav/go-rubric/internal/domain"
	"github.com/ahrav/go-rubric/internal/ports"
)

// GenAIMetricConfig defines an LLM-as-judge metric: what is being graded,
// how the judge should grade it, and how the judge is called.
type GenAIMetricConfig struct {
	// Name identifies the metric and appears verbatim in the grading
	// prompt ("your numerical score for the model's <name>").
	Name string `yaml:"name" json:"name" validate:"required"`

	// Definition explains to the judge what the metric measures.
	Definition string `yaml:"definition" json:"definition" validate:"required"`

	// GradingPrompt is the rubric: the scoring criteria the judge must
	// apply, typically one description per score level.
	GradingPrompt string `yaml:"grading_prompt" json:"grading_prompt" validate:"required"`

	// Examples are optional few-shot demonstrations rendered into the
	// grading prompt.
	Examples []domain.EvaluationExample `yaml:"examples" json:"examples"`

	// Version pins the grading prompt version. Defaults to
	// LatestMetricVersion.
	Version string `yaml:"version" json:"version"`

	// ModelURI identifies the judge model in "provider:/model" form.
	// Defaults to judge.DefaultModelURI.
	ModelURI string `yaml:"model" json:"model"`

	// GradingContextColumns names the context columns every row must
	// provide, in the order they appear in the prompt.
	GradingContextColumns []string `yaml:"grading_context_columns" json:"grading_context_columns"`

	// Parameters are the judge sampling parameters. Defaults to
	// temperature 0.0, max_tokens 200, top_p 1.0.
	Parameters map[string]any `yaml:"parameters" json:"parameters"`

	// Aggregations selects the summary statistics computed over the
	// scores. Defaults to mean, variance, and p90.
	Aggregations []domain.AggregateOption `yaml:"aggregations" json:"aggregations"`

	// GreaterIsBetter records whether higher scores are better. Carried
	// as metadata on the resulting metric.
	GreaterIsBetter bool `yaml:"greater_is_better" json:"greater_is_better"`

	// MaxWorkers bounds concurrent judge requests per evaluation.
	// Defaults to judge.DefaultMaxWorkers.
	MaxWorkers int `yaml:"max_workers" json:"max_workers"`

	// RequestTimeout bounds each judge request and the overall batch
	// wait. Defaults to judge.DefaultRequestTimeout.
	RequestTimeout time.Duration `yaml:"judge_request_timeout" json:"judge_request_timeout"`
}

// DefaultGenAIMetricConfig returns a config with the standard judge
// parameters for the given metric identity. Callers adjust fields as
// needed before passing it to MakeGenAIMetric.
func DefaultGenAIMetricConfig(name, definition, gradingPrompt string) GenAIMetricConfig {
	return GenAIMetricConfig{
		Name:            name,
		Definition:      definition,
		GradingPrompt:   gradingPrompt,
		Version:         LatestMetricVersion,
		ModelURI:        judge.DefaultModelURI,
		Parameters:      defaultJudgeParameters(),
		Aggregations:    domain.DefaultAggregations(),
		GreaterIsBetter: true,
		MaxWorkers:      judge.DefaultMaxWorkers,
		RequestTimeout:  judge.DefaultRequestTimeout,
	}
}

// defaultJudgeParameters returns the standard sampling parameters for a
// judge. Temperature 0 keeps scoring as deterministic as the provider
// allows.
func defaultJudgeParameters() map[string]any {
	return map[string]any{
		"temperature": 0.0,
		"max_tokens":  200,
		"top_p":       1.0,
	}
}

// withDefaults fills zero-valued optional fields.
func (c GenAIMetricConfig) withDefaults() GenAIMetricConfig {
	if c.Version == "" {
		c.Version = LatestMetricVersion
	}
	if c.ModelURI == "" {
		c.ModelURI = judge.DefaultModelURI
	}
	if c.Parameters == nil {
		c.Parameters = defaultJudgeParameters()
	}
	if c.Aggregations == nil {
		c.Aggregations = domain.DefaultAggregations()
	}
	return c
}

// MakeGenAIMetric builds an LLM-as-judge evaluation metric from config.
//
// All configuration errors (missing identity fields, an unknown prompt
// version, an invalid aggregation name, a grading template that does not
// compile) surface here, before the metric can be evaluated and before
// any judge request is made. metrics may be nil to disable telemetry.
func MakeGenAIMetric(client ports.JudgeClient, config GenAIMetricConfig, metrics ports.MetricsCollector) (domain.EvaluationMetric, error) {
	if client == nil {
		return domain.EvaluationMetric{}, domain.NewConfigError("judge client cannot be nil")
	}

	config = config.withDefaults()
	if err := validator.New().Struct(config); err != nil {
		return domain.EvaluationMetric{}, domain.NewConfigError("metric configuration validation failed: %v", err)
	}
	if err := domain.ValidateAggregations(config.Aggregations); err != nil {
		return domain.EvaluationMetric{}, err
	}

	promptTemplate, err := gradingTemplateForVersion(
		config.Version, config.Name, config.Definition, config.GradingPrompt, config.Examples)
	if err != nil {
		return domain.EvaluationMetric{}, err
	}

	builder, err := judge.NewPayloadBuilder(promptTemplate, config.GradingContextColumns, config.Parameters)
	if err != nil {
		return domain.EvaluationMetric{}, err
	}

	scorer, err := judge.NewConcurrentScorer(config.Name, client, builder, judge.ScorerConfig{
		ModelURI:       config.ModelURI,
		MaxWorkers:     config.MaxWorkers,
		RequestTimeout: config.RequestTimeout,
	}, metrics)
	if err != nil {
		return domain.EvaluationMetric{}, err
	}

	contextColumns := config.GradingContextColumns
	aggregations := config.Aggregations

	eval := func(ctx context.Context, outputs, inputs []string, gradingContext map[string][]string) (*domain.MetricValue, error) {
		rows, err := assembleRows(outputs, inputs, contextColumns, gradingContext)
		if err != nil {
			return nil, err
		}

		results, err := scorer.ScoreRows(ctx, rows)
		if err != nil {
			return nil, err
		}

		scores := make([]*int, len(results))
		justifications := make([]string, len(results))
		for i, result := range results {
			scores[i] = result.Score
			justifications[i] = result.Justification
		}

		value := &domain.MetricValue{
			Scores:         scores,
			Justifications: justifications,
			Aggregates:     domain.ComputeAggregates(aggregations, nonNilScores(scores)),
		}
		return value, nil
	}

	return domain.EvaluationMetric{
		Name:            config.Name,
		Version:         config.Version,
		GreaterIsBetter: config.GreaterIsBetter,
		MetricDetails:   promptTemplate,
		Eval:            eval,
	}, nil
}

// assembleRows zips the parallel input slices into one Row per index.
// Every slice, including each grading context column, must have the same
// length; a mismatch or a missing column is a ConfigError raised before
// any scoring work starts.
func assembleRows(outputs, inputs []string, contextColumns []string, gradingContext map[string][]string) ([]domain.Row, error) {
	if len(outputs) != len(inputs) {
		return nil, domain.NewConfigError(
			"outputs and inputs must have the same length, got %d outputs and %d inputs",
			len(outputs), len(inputs))
	}

	for _, column := range contextColumns {
		values, ok := gradingContext[column]
		if !ok {
			return nil, domain.NewConfigError(
				"grading context column %q was not provided, available columns: %v",
				column, slicesOfKeys(gradingContext))
		}
		if len(values) != len(inputs) {
			return nil, domain.NewConfigError(
				"grading context column %q has %d values but there are %d rows",
				column, len(values), len(inputs))
		}
	}

	rows := make([]domain.Row, len(inputs))
	for i := range inputs {
		rowContext := make(map[string]string, len(contextColumns))
		for _, column := range contextColumns {
			rowContext[column] = gradingContext[column][i]
		}
		rows[i] = domain.Row{
			Index:   i,
			Input:   inputs[i],
			Output:  outputs[i],
			Context: rowContext,
		}
	}
	return rows, nil
}

func slicesOfKeys(m map[string][]string) []string {
	return slices.Sorted(maps.Keys(m))
}

func nonNilScores(scores []*int) []int {
	values := make([]int, 0, len(scores))
	for _, s := range scores {
		if s != nil {
			values = append(values, *s)
		}
	}
	return values
}
