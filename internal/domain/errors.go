package domain

import (
	"errors"
	"fmt"
)

// Severity classifies how a failure affects a scoring run.
// Fatal failures abort the entire run; recoverable failures degrade only
// the affected row to a nil score.
type Severity int

const (
	// SeverityRecoverable marks failures absorbed into a row-level nil
	// score with a diagnostic justification.
	SeverityRecoverable Severity = iota

	// SeverityFatal marks failures that abort the whole scoring run with
	// no MetricValue produced.
	SeverityFatal
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	if s == SeverityFatal {
		return "fatal"
	}
	return "recoverable"
}

// Kind identifies the failure category of an Error.
type Kind int

const (
	// KindConfig is a pre-flight configuration failure: unknown aggregation
	// name, unresolvable rubric version, or row-count mismatch.
	KindConfig Kind = iota

	// KindContext is a missing required grading-context column.
	KindContext

	// KindJudge is a failure reported by the judge client.
	KindJudge

	// KindTimeout is the batch wait budget elapsing before all rows
	// reported.
	KindTimeout
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindContext:
		return "context"
	case KindJudge:
		return "judge"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// SeverityError is implemented by errors that carry an explicit severity.
// Failure handling branches on this field, never on message content.
type SeverityError interface {
	error
	ErrorSeverity() Severity
}

// Error is the discriminated error type for scoring failures.
// Kind says what went wrong; Severity says whether the run survives it.
type Error struct {
	Kind     Kind
	Severity Severity
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error, supporting errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Err }

// ErrorSeverity implements SeverityError.
func (e *Error) ErrorSeverity() Severity { return e.Severity }

// NewConfigError creates a fatal pre-flight configuration error.
func NewConfigError(format string, args ...any) *Error {
	return &Error{
		Kind:     KindConfig,
		Severity: SeverityFatal,
		Message:  fmt.Sprintf(format, args...),
	}
}

// NewContextError creates a fatal error for a grading-context column that
// has no value for a row. A missing column is caller misconfiguration, not
// row-level data noise, so it fails the whole batch.
func NewContextError(column string, rowIndex int) *Error {
	return &Error{
		Kind:     KindContext,
		Severity: SeverityFatal,
		Message:  fmt.Sprintf("grading context column %q has no value for row %d", column, rowIndex),
	}
}

// NewTimeoutError creates the fatal run-level error raised when the batch
// wait budget elapses with rows still outstanding.
func NewTimeoutError(outstanding, total int) *Error {
	return &Error{
		Kind:     KindTimeout,
		Severity: SeverityFatal,
		Message:  fmt.Sprintf("judge scoring timed out with %d of %d rows outstanding", outstanding, total),
	}
}

// NewJudgeError wraps a judge-client failure with an explicit severity.
func NewJudgeError(severity Severity, err error) *Error {
	return &Error{
		Kind:     KindJudge,
		Severity: severity,
		Message:  "judge request failed",
		Err:      err,
	}
}

// IsFatal reports whether an error must abort the scoring run.
// Any error in the chain exposing a fatal severity is fatal; everything
// else (including plain errors without a severity) is treated as
// recoverable at the task boundary.
func IsFatal(err error) bool {
	var se SeverityError
	if errors.As(err, &se) {
		return se.ErrorSeverity() == SeverityFatal
	}
	return false
}

// IsKind reports whether the error chain contains a domain Error of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
