package judge

import (
	"fmt"
	"strings"

	"github.com/ahrav/go-rubric/internal/domain"
)

// gradingPromptFrameV1 is the v1 grading prompt. The metric-level fields
// (name, definition, rubric, examples) are substituted once at metric
// construction; the remaining {{.Input}}, {{.Output}}, and
// {{.GradingContext}} placeholders are rendered per row by the
// PayloadBuilder.
const gradingPromptFrameV1 = `Task:
You must return the following fields in your response in two lines, one below the other:
score: Your numerical score for the model's %[1]s based on the rubric
justification: Your reasoning about the model's %[1]s score

You are an impartial judge. You will be given an input that was sent to a machine
learning model, and you will be given an output that the model produced. You
may also be given additional information that was used by the model to generate the output.

Your task is to determine a numerical score called %[1]s based on the input and output.
A definition of %[1]s and a grading rubric are provided below.
You must use the grading rubric to determine your score. You must also justify your score.

Examples could be included below for reference. Make sure to use them as references and to
understand them before completing the task.

Input:
{{.Input}}

Output:
{{.Output}}

{{.GradingContext}}

Metric definition:
%[2]s

Grading rubric:
%[3]s

%[4]s

You must return the following fields in your response in two lines, one below the other:
score: Your numerical score for the model's %[1]s based on the rubric
justification: Your reasoning about the model's %[1]s score

Do not add additional new lines. Do not add any other fields.`

// BuildGradingTemplateV1 assembles the v1 per-row prompt template for a
// metric. The returned string is a text/template with {{.Input}},
// {{.Output}}, and {{.GradingContext}} placeholders, suitable for
// NewPayloadBuilder.
func BuildGradingTemplateV1(name, definition, gradingPrompt string, examples []domain.EvaluationExample) string {
	return fmt.Sprintf(gradingPromptFrameV1, name, definition, gradingPrompt, formatExamplesV1(examples))
}

// formatExamplesV1 renders few-shot examples in the same shape the judge
// is asked to produce, so they double as output format demonstrations.
func formatExamplesV1(examples []domain.EvaluationExample) string {
	if len(examples) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Examples:\n")
	for _, ex := range examples {
		sb.WriteString("\nInput:\n")
		sb.WriteString(ex.Input)
		sb.WriteString("\n\nOutput:\n")
		sb.WriteString(ex.Output)
		if block := formatGradingContext(ex.GradingContext, sortedColumns(ex.GradingContext)); block != "" {
			sb.WriteString("\n\n")
			sb.WriteString(block)
		}
		sb.WriteString(fmt.Sprintf("\n\nscore: %d\njustification: %s\n", ex.Score, ex.Justification))
	}
	return sb.String()
}
