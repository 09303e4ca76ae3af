// Package judge implements the LLM-as-judge scoring pipeline: rendering
// grading prompts per row, dispatching judge requests under bounded
// concurrency, and parsing free-form judge responses into structured
// score results.
package judge

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/template"

	"github.com/ahrav/go-rubric/internal/domain"
)

// PayloadBuilder renders the grading prompt for each evaluation row.
// Building is a pure function of the row: identical rows produce
// byte-identical payloads, which keeps judge requests reproducible and
// cacheable upstream.
type PayloadBuilder struct {
	// promptTemplate is the compiled per-row template with {{.Input}},
	// {{.Output}}, and {{.GradingContext}} placeholders.
	promptTemplate *template.Template
	// contextColumns lists the grading context columns every row must
	// carry, in the order they appear in the rendered context block.
	contextColumns []string
	// parameters are the static judge sampling parameters attached to
	// every payload.
	parameters map[string]any
}

// promptData is the per-row template input.
type promptData struct {
	Input          string
	Output         string
	GradingContext string
}

// NewPayloadBuilder compiles promptTemplate and returns a builder that
// requires contextColumns on every row and attaches parameters to every
// payload. Returns a ConfigError if the template does not parse.
func NewPayloadBuilder(promptTemplate string, contextColumns []string, parameters map[string]any) (*PayloadBuilder, error) {
	tmpl, err := template.New("gradingPrompt").Parse(promptTemplate)
	if err != nil {
		return nil, domain.NewConfigError("failed to parse grading prompt template: %v", err)
	}

	return &PayloadBuilder{
		promptTemplate: tmpl,
		contextColumns: slices.Clone(contextColumns),
		parameters:     maps.Clone(parameters),
	}, nil
}

// Build renders the grading prompt for row and returns the complete judge
// payload. A required context column missing from the row yields a
// ContextError, which is fatal for the whole batch: the scorer builds all
// payloads before dispatching any judge request, so a malformed dataset
// fails before a single paid call is made.
func (b *PayloadBuilder) Build(row domain.Row) (domain.Payload, error) {
	for _, column := range b.contextColumns {
		if _, ok := row.Context[column]; !ok {
			return domain.Payload{}, domain.NewContextError(column, row.Index)
		}
	}

	var buf bytes.Buffer
	data := promptData{
		Input:          row.Input,
		Output:         row.Output,
		GradingContext: formatGradingContext(row.Context, b.contextColumns),
	}
	if err := b.promptTemplate.Execute(&buf, data); err != nil {
		return domain.Payload{}, domain.NewConfigError("failed to render grading prompt for row %d: %v", row.Index, err)
	}

	return domain.Payload{
		Prompt:     buf.String(),
		Parameters: maps.Clone(b.parameters),
	}, nil
}

// formatGradingContext renders the additional-information block shown to
// the judge. Columns appear in the given order; an empty column list
// yields an empty block.
func formatGradingContext(context map[string]string, columns []string) string {
	if len(columns) == 0 {
		return ""
	}

	pairs := make([]string, 0, len(columns))
	for _, column := range columns {
		pairs = append(pairs, fmt.Sprintf("key: %s\nvalue:\n%s", column, context[column]))
	}
	return "Additional information used by the model:\n" + strings.Join(pairs, "\n")
}

// sortedColumns returns the map's keys in sorted order, used where no
// declared column order exists.
func sortedColumns(context map[string]string) []string {
	return slices.Sorted(maps.Keys(context))
}
