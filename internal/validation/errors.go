package validation

import (
	"fmt"
	"strings"
)

// IncompleteInputError reports required input fields absent from the record.
// Declined is set when the operator chose not to continue.
type IncompleteInputError struct {
	Missing  []string
	Declined bool
	Err      error
}

func (e *IncompleteInputError) Error() string {
	msg := fmt.Sprintf("missing required input fields: %s", strings.Join(e.Missing, ", "))
	if e.Declined {
		msg += " (run declined)"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IncompleteInputError) Unwrap() error {
	return e.Err
}

// OutputParseError reports a model response that is not a JSON object.
// It is recorded as a warning and never aborts a run.
type OutputParseError struct {
	Err error
}

func (e *OutputParseError) Error() string {
	return fmt.Sprintf("model response is not structured output: %v", e.Err)
}

func (e *OutputParseError) Unwrap() error {
	return e.Err
}
