// Package textmetrics provides deterministic, closed-form evaluation
// metrics that share the EvaluationMetric shape with the LLM-as-judge
// metrics but need no judge model: exact match, fuzzy similarity, and
// token count.
package textmetrics

import (
	"context"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-rubric/internal/domain"
)

// foldCaser performs Unicode case folding for case-insensitive
// comparisons. Safe for concurrent use.
var foldCaser = cases.Fold()

// charactersPerToken is the approximate number of characters per token
// used by the token count metric.
const charactersPerToken = 4

// ExactMatchMetric returns a metric scoring 1 when the output equals the
// input's expected target under Unicode case folding, and 0 otherwise.
// The target comes from the "targets" grading context column.
func ExactMatchMetric() domain.EvaluationMetric {
	return closedFormMetric(
		"exact_match",
		"Whether the output exactly matches the target, ignoring case.",
		func(output, target string) int {
			if foldCaser.String(output) == foldCaser.String(target) {
				return 1
			}
			return 0
		},
	)
}

// FuzzySimilarityMetric returns a metric scoring the Levenshtein
// similarity between output and target as an integer percentage from 0
// to 100. Comparison is case-folded.
func FuzzySimilarityMetric() domain.EvaluationMetric {
	return closedFormMetric(
		"fuzzy_similarity",
		"Levenshtein similarity between the output and the target as a percentage.",
		func(output, target string) int {
			return int(similarity(foldCaser.String(output), foldCaser.String(target)) * 100)
		},
	)
}

// TokenCountMetric returns a metric scoring the approximate token count of
// each output. It needs no target column.
func TokenCountMetric() domain.EvaluationMetric {
	eval := func(ctx context.Context, outputs, inputs []string, gradingContext map[string][]string) (*domain.MetricValue, error) {
		scores := make([]*int, len(outputs))
		justifications := make([]string, len(outputs))
		values := make([]int, len(outputs))
		for i, output := range outputs {
			count := len(output) / charactersPerToken
			scores[i] = &count
			values[i] = count
		}

		return &domain.MetricValue{
			Scores:         scores,
			Justifications: justifications,
			Aggregates:     domain.ComputeAggregates(domain.DefaultAggregations(), values),
		}, nil
	}

	return domain.EvaluationMetric{
		Name:            "token_count",
		Version:         "v1",
		GreaterIsBetter: false,
		MetricDetails:   "Approximate number of tokens in the output.",
		Eval:            eval,
	}
}

// closedFormMetric builds an EvaluationMetric around a pure per-row score
// function comparing the output to the "targets" grading context column.
func closedFormMetric(name, details string, score func(output, target string) int) domain.EvaluationMetric {
	eval := func(ctx context.Context, outputs, inputs []string, gradingContext map[string][]string) (*domain.MetricValue, error) {
		targets, ok := gradingContext["targets"]
		if !ok {
			return nil, domain.NewConfigError("metric %q requires the \"targets\" grading context column", name)
		}
		if len(targets) != len(outputs) {
			return nil, domain.NewConfigError(
				"grading context column \"targets\" has %d values but there are %d rows",
				len(targets), len(outputs))
		}

		scores := make([]*int, len(outputs))
		justifications := make([]string, len(outputs))
		values := make([]int, len(outputs))
		for i, output := range outputs {
			s := score(output, targets[i])
			scores[i] = &s
			values[i] = s
		}

		return &domain.MetricValue{
			Scores:         scores,
			Justifications: justifications,
			Aggregates:     domain.ComputeAggregates(domain.DefaultAggregations(), values),
		}, nil
	}

	return domain.EvaluationMetric{
		Name:            name,
		Version:         "v1",
		GreaterIsBetter: true,
		MetricDetails:   details,
		Eval:            eval,
	}
}

// similarity computes the normalized Levenshtein similarity between two
// strings. Returns a value between 0.0 and 1.0 where 1.0 indicates
// identical strings.
func similarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	// The levenshtein library operates on runes, so the maximum possible
	// distance is the larger rune count, not byte length.
	distance := levenshtein.ComputeDistance(s1, s2)

	maxLen := utf8.RuneCountInString(s1)
	if n := utf8.RuneCountInString(s2); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}

	sim := 1.0 - float64(distance)/float64(maxLen)
	if sim < 0 {
		sim = 0
	}
	return sim
}
