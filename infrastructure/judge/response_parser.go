package judge

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/ahrav/go-rubric/internal/domain"
)

// scoreLinePattern matches the two-line plain-text format the grading
// prompt asks the judge for. Case-sensitive, and the justification stops
// at the end of its line.
var scoreLinePattern = regexp.MustCompile(`score: (\d+),?\s*justification: (.+)`)

// ResponseParser extracts a (score, justification) pair from a raw judge
// response. Parsing never returns an error: a response that yields no
// score produces a nil score with a diagnostic justification, so one
// unparseable judge reply degrades a single row instead of the batch.
type ResponseParser struct{}

// NewResponseParser returns a parser for the v1 response format.
func NewResponseParser() *ResponseParser { return &ResponseParser{} }

// Parse extracts the score and justification from response.
//
// The first candidate's text is preferred; the flat Text field is the
// fallback. An entirely empty response yields {nil, ""}. Otherwise the
// text is tried as a JSON object with "score" and "justification" fields,
// then as the two-line "score: N, justification: ..." plain-text format.
// If neither matches, or the fields have the wrong types, the
// justification carries the raw text for debugging.
func (p *ResponseParser) Parse(response domain.RawJudgeResponse) domain.ScoreResult {
	text := response.FirstText()
	if text == "" {
		return domain.ScoreResult{}
	}

	var structured map[string]any
	if err := json.Unmarshal([]byte(text), &structured); err == nil {
		return parseStructured(structured, text)
	}

	if match := scoreLinePattern.FindStringSubmatch(text); match != nil {
		var score int
		// \d+ guarantees the digits parse; Sscanf keeps the coercion explicit.
		if _, err := fmt.Sscanf(match[1], "%d", &score); err == nil {
			return domain.ScoreResult{Score: &score, Justification: match[2]}
		}
	}

	return extractionFailure(text)
}

// parseStructured pulls score and justification out of a decoded JSON
// object. JSON numbers arrive as float64; fractional scores truncate
// toward zero, matching the structured-output contract of an integer
// rubric scale.
func parseStructured(data map[string]any, raw string) domain.ScoreResult {
	scoreValue, ok := data["score"].(float64)
	if !ok {
		return extractionFailure(raw)
	}
	justification, ok := data["justification"].(string)
	if !ok {
		return extractionFailure(raw)
	}

	score := int(scoreValue)
	return domain.ScoreResult{Score: &score, Justification: justification}
}

func extractionFailure(raw string) domain.ScoreResult {
	return domain.ScoreResult{
		Justification: fmt.Sprintf("Failed to extract score and justification. Raw output: %s", raw),
	}
}
