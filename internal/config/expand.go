package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
)

// ErrUnsetVariable is returned when a ${VAR} reference has no value and no default.
var ErrUnsetVariable = errors.New("environment variable not set")

var envRef = regexp.MustCompile(`\$\{([^}:]+)(?::(-)?([^}]*))?\}`)

// Expand replaces ${VAR} and ${VAR:-default} references in every string
// reachable from value. With strict set, a reference to an unset variable
// without a default fails with ErrUnsetVariable; otherwise it is kept verbatim.
func Expand(value any, strict bool) (any, error) {
	switch v := value.(type) {
	case string:
		return ExpandString(v, strict)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			expanded, err := Expand(item, strict)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = expanded
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			expanded, err := Expand(item, strict)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return value, nil
	}
}

// ExpandString expands references in a single string.
func ExpandString(s string, strict bool) (string, error) {
	var firstErr error

	out := envRef.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		name, hasDefault, def := m[1], m[2] != "", m[3]

		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		if hasDefault {
			return def
		}
		if strict && firstErr == nil {
			firstErr = fmt.Errorf("%w: %s", ErrUnsetVariable, name)
		}
		return ref
	})

	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
