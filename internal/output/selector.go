package output

import (
	"regexp"
	"unicode/utf8"

	"github.com/JaimeStill/envoy/internal/workflow"
)

// DefaultLengthThreshold is the raw response length in characters above which a result
// with several fields is rendered as a document.
const DefaultLengthThreshold = 500

var markup = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^#{1,6}\s+\S`),
	regexp.MustCompile(`(?m)^\s*[-*+]\s+\*\*[^*\n]+\*\*`),
	regexp.MustCompile(`\*\*[^*\n]+\*\*`),
	regexp.MustCompile("(?m)^\\s*```"),
}

// Rule maps a result predicate to a format.
type Rule struct {
	Name   string
	Match  func(res *workflow.Result) bool
	Format Format
}

// DefaultRules returns the format heuristics in evaluation order. Structured
// fields are checked before markup so list and mapping outputs always land
// in a machine-readable format.
func DefaultRules(threshold int) []Rule {
	if threshold <= 0 {
		threshold = DefaultLengthThreshold
	}

	return []Rule{
		{Name: "structured-fields", Match: hasStructuredField, Format: JSON},
		{Name: "markup", Match: func(res *workflow.Result) bool { return HasMarkup(res.RawResponse) }, Format: Markdown},
		{
			Name: "long-text",
			Match: func(res *workflow.Result) bool {
				return utf8.RuneCountInString(res.RawResponse) > threshold && res.OutputFields() >= 3
			},
			Format: Markdown,
		},
		{Name: "many-fields", Match: func(res *workflow.Result) bool { return res.OutputFields() >= 4 }, Format: YAML},
		{Name: "default", Match: func(*workflow.Result) bool { return true }, Format: Text},
	}
}

// Selector picks a format by evaluating rules top to bottom; the first match wins.
type Selector struct {
	Rules []Rule
}

// NewSelector creates a Selector with DefaultRules(threshold).
func NewSelector(threshold int) *Selector {
	return &Selector{Rules: DefaultRules(threshold)}
}

// Select returns the chosen format and the name of the rule that matched.
func (s *Selector) Select(res *workflow.Result) (Format, string) {
	for _, r := range s.Rules {
		if r.Match(res) {
			return r.Format, r.Name
		}
	}
	return Text, "default"
}

// HasMarkup reports whether text contains Markdown headings, bold spans,
// bulleted bold items, or fenced code.
func HasMarkup(text string) bool {
	for _, re := range markup {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func hasStructuredField(res *workflow.Result) bool {
	if res.Outputs == nil {
		return false
	}

	found := false
	res.Outputs.Each(func(_ string, v any) {
		if isStructured(v) {
			found = true
		}
	})
	return found
}
