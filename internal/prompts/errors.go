package prompts

import "errors"

// ErrSystemTemplate is returned when the system template cannot be read.
var ErrSystemTemplate = errors.New("system prompt template unavailable")
