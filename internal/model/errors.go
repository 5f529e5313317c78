package model

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when the endpoint answers without choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// ModelInvocationError reports a model call that failed after every attempt.
type ModelInvocationError struct {
	Model    string
	Attempts int
	Err      error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("model %s failed after %d attempt(s): %v", e.Model, e.Attempts, e.Err)
}

func (e *ModelInvocationError) Unwrap() error {
	return e.Err
}
