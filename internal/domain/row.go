// Package domain contains pure, dependency-free domain models and types
// for the judge-scoring engine.
package domain

import (
	"context"
	"maps"
)

// Row is a single evaluation unit: one (input, output) pair plus the
// grading context supplied for it. Rows are created fresh per scoring run,
// never mutated, and discarded once the MetricValue is produced.
type Row struct {
	// Index is the row's position in the original batch. It is the stable
	// ordering key: results are always reported in Index order regardless
	// of completion order during concurrent scoring.
	Index int

	// Input is the text the model under evaluation was given.
	Input string

	// Output is the model's answer, the thing being judged.
	Output string

	// Context maps grading-context column names to their values for this
	// row (e.g. a ground-truth reference under "targets").
	Context map[string]string
}

// Payload is the fully rendered judge request for one Row: the grading
// prompt plus the static request parameters. It is a pure function of the
// Row, the rubric template, and the configured parameters.
type Payload struct {
	// Prompt is the complete grading prompt sent to the judge model.
	Prompt string

	// Parameters holds judge request parameters such as temperature,
	// max_tokens, and top_p.
	Parameters map[string]any
}

// Clone returns a copy of the payload with its own parameter map, so a
// worker can decorate parameters without affecting other rows.
func (p Payload) Clone() Payload {
	return Payload{Prompt: p.Prompt, Parameters: maps.Clone(p.Parameters)}
}

// Candidate is one structured output candidate in a judge response.
type Candidate struct {
	// Text is the candidate's generated text.
	Text string
}

// RawJudgeResponse is the opaque output returned by a judge endpoint for
// one Payload. Providers that return structured candidate lists populate
// Candidates; plain-completion providers populate Text. The parser prefers
// the first candidate's text and falls back to Text.
type RawJudgeResponse struct {
	Candidates []Candidate
	Text       string
}

// FirstText returns the text to parse: the first candidate's text when a
// candidate list is present, otherwise the raw text. An empty string means
// no text was obtainable.
func (r RawJudgeResponse) FirstText() string {
	if len(r.Candidates) > 0 {
		return r.Candidates[0].Text
	}
	return r.Text
}

// ScoreResult is the parsed outcome of judging one row.
// Score is set only when the judge's answer parsed to a number;
// Justification carries either the judge's reasoning or a diagnostic
// describing why the row could not be scored.
type ScoreResult struct {
	Score         *int
	Justification string
}

// MetricValue is the result of one scoring run: per-row scores and
// justifications in original row order, plus aggregate statistics computed
// over the non-nil scores. len(Scores) == len(Justifications) == the number
// of input rows, always.
type MetricValue struct {
	Scores         []*int
	Justifications []string
	Aggregates     map[AggregateOption]float64
}

// NonNilScores returns the scores that parsed successfully, in row order.
// This is the input to aggregation; nil scores are excluded.
func (mv *MetricValue) NonNilScores() []int {
	scores := make([]int, 0, len(mv.Scores))
	for _, s := range mv.Scores {
		if s != nil {
			scores = append(scores, *s)
		}
	}
	return scores
}

// EvaluationExample is a few-shot grading example rendered into the judge
// prompt to calibrate scoring.
type EvaluationExample struct {
	// Input is the example's evaluation input.
	Input string `yaml:"input" json:"input"`

	// Output is the example model output being graded.
	Output string `yaml:"output" json:"output"`

	// Score is the reference score for the example.
	Score int `yaml:"score" json:"score"`

	// Justification explains why the example deserves its score.
	Justification string `yaml:"justification" json:"justification"`

	// GradingContext maps grading-context column names to the example's
	// values for them.
	GradingContext map[string]string `yaml:"grading_context" json:"grading_context"`
}

// EvalFunc evaluates a batch: ordered model outputs and inputs, plus one
// ordered value slice per grading-context column, all of equal length.
// It returns a MetricValue whose Scores and Justifications match the input
// ordering, or a fatal run-level error.
type EvalFunc func(ctx context.Context, outputs, inputs []string, gradingContext map[string][]string) (*MetricValue, error)

// EvaluationMetric is a named, versioned metric exposed to the metric
// registry. GreaterIsBetter is metadata only; it does not influence
// scoring.
type EvaluationMetric struct {
	Name            string
	Version         string
	GreaterIsBetter bool

	// MetricDetails is a human-readable description of how the metric
	// scores rows (for judge metrics, the rendered grading prompt).
	MetricDetails string

	// Eval computes the metric over a batch.
	Eval EvalFunc
}
