package formatting_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/envoy/pkg/formatting"
)

type verdict struct {
	Result     string  `json:"result"`
	Confidence float64 `json:"confidence"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    verdict
		wantErr bool
	}{
		{"direct JSON", `{"result":"x","confidence":0.9}`, verdict{"x", 0.9}, false},
		{"padded JSON", "  {\"result\":\"p\",\"confidence\":1}\n", verdict{"p", 1}, false},
		{"fenced with tag", "```json\n{\"result\":\"f\",\"confidence\":0.5}\n```", verdict{"f", 0.5}, false},
		{"fenced without tag", "```\n{\"result\":\"b\",\"confidence\":0.1}\n```", verdict{"b", 0.1}, false},
		{"fence inside prose", "Here it is:\n```json\n{\"result\":\"w\",\"confidence\":0.2}\n```\nDone.", verdict{"w", 0.2}, false},
		{"object inside prose", "Answer: {\"result\":\"e\",\"confidence\":0.3} thanks", verdict{"e", 0.3}, false},
		{"plain text", "not json at all", verdict{}, true},
		{"empty", "", verdict{}, true},
		{"broken fence", "```json\n{broken\n```", verdict{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[verdict](tt.input)
			if tt.wantErr {
				if !errors.Is(err, formatting.ErrParseFailed) {
					t.Fatalf("error = %v, want ErrParseFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseIntoMap(t *testing.T) {
	got, err := formatting.Parse[map[string]any](`{"key":"value"}`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got["key"] != "value" {
		t.Errorf("got[key] = %v, want value", got["key"])
	}
}

func TestCandidates(t *testing.T) {
	got := formatting.Candidates("```json\n{\"a\":1}\n```")
	if len(got) != 2 {
		t.Fatalf("Candidates returned %d entries, want 2: %q", len(got), got)
	}
	if got[1] != `{"a":1}` {
		t.Errorf("fenced candidate = %q", got[1])
	}

	if got := formatting.Candidates("   "); got != nil {
		t.Errorf("Candidates(blank) = %q, want nil", got)
	}
}
