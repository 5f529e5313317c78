package agents

import "errors"

// Registry lookup errors.
var (
	ErrNotFound      = errors.New("agent not found")
	ErrDisabled      = errors.New("agent disabled")
	ErrModelNotFound = errors.New("model not found")
	ErrInvalidSpec   = errors.New("invalid field spec")
)
