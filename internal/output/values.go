package output

import (
	"strings"

	"github.com/JaimeStill/envoy/internal/prompts"
	"github.com/JaimeStill/envoy/pkg/record"
)

func isStructured(v any) bool {
	switch v.(type) {
	case []any, []string, map[string]any, *record.Record:
		return true
	}
	return false
}

func items(v any) []any {
	switch list := v.(type) {
	case []any:
		return list
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out
	}
	return nil
}

func scalar(v any) string {
	return prompts.Stringify(v)
}

func multiline(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok && strings.Contains(s, "\n")
}
