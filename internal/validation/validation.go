// Package validation checks prompt templates, input records, and model
// output against an agent's declared field contract.
//
// Three layers run in a fixed order: template references, input
// completeness, output completeness. None of them modifies field values.
package validation

import (
	"context"
	"slices"

	"github.com/JaimeStill/envoy/internal/prompts"
	"github.com/JaimeStill/envoy/pkg/formatting"
	"github.com/JaimeStill/envoy/pkg/record"
)

// Layer names a validation layer.
type Layer string

const (
	LayerTemplate Layer = "template_references"
	LayerInput    Layer = "input_completeness"
	LayerOutput   Layer = "output_completeness"
)

// Status is the outcome of a single layer.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Run outcome values derived from output completeness.
const (
	Success        = "success"
	PartialSuccess = "partial_success"
)

// Report is the outcome of one layer.
type Report struct {
	Layer   Layer    `json:"layer"`
	Status  Status   `json:"status"`
	Missing []string `json:"missing,omitempty"`
}

// Prompter asks the operator whether to continue despite missing fields.
type Prompter interface {
	Confirm(ctx context.Context, missing []string) (bool, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, missing []string) (bool, error)

func (f PrompterFunc) Confirm(ctx context.Context, missing []string) (bool, error) {
	return f(ctx, missing)
}

// InputPolicy controls how missing input fields are handled.
// Strict fails immediately; otherwise Prompter decides. A nil Prompter in
// non-strict mode behaves as a decline.
type InputPolicy struct {
	Strict   bool
	Prompter Prompter
}

// TemplateReferences reports required fields that no template references.
// It never fails: missing references produce a warning.
func TemplateReferences(required []string, templates ...string) Report {
	referenced := prompts.Placeholders(templates...)
	missing := difference(required, referenced)

	report := Report{Layer: LayerTemplate, Status: StatusPass}
	if len(missing) > 0 {
		report.Status = StatusWarn
		report.Missing = missing
	}
	return report
}

// InputCompleteness reports required fields absent from rec and applies policy.
// A returned error is always an *IncompleteInputError and the report status is fail.
func InputCompleteness(ctx context.Context, required []string, rec *record.Record, policy InputPolicy) (Report, error) {
	missing := make([]string, 0)
	for _, name := range required {
		if !rec.Has(name) {
			missing = append(missing, name)
		}
	}

	report := Report{Layer: LayerInput, Status: StatusPass}
	if len(missing) == 0 {
		return report, nil
	}

	report.Missing = missing

	if policy.Strict || policy.Prompter == nil {
		report.Status = StatusFail
		return report, &IncompleteInputError{Missing: missing}
	}

	ok, err := policy.Prompter.Confirm(ctx, missing)
	if err != nil || !ok {
		report.Status = StatusFail
		return report, &IncompleteInputError{Missing: missing, Declined: true, Err: err}
	}

	report.Status = StatusWarn
	return report, nil
}

// OutputReport is the outcome of the output completeness layer.
type OutputReport struct {
	Report
	// Outputs is nil when the response could not be parsed.
	Outputs *record.Record
	// RunStatus is Success or PartialSuccess.
	RunStatus string
	// ParseErr is set when the response is not a JSON object.
	ParseErr *OutputParseError
}

// OutputCompleteness parses raw as a JSON object, directly or from a fenced
// code block, and reports expected fields that are absent. An unparseable
// response counts every expected field as missing. It never aborts.
func OutputCompleteness(expected []string, raw string) OutputReport {
	out := OutputReport{
		Report:    Report{Layer: LayerOutput, Status: StatusPass},
		RunStatus: Success,
	}

	rec, err := ParseOutput(raw)
	if err != nil {
		out.ParseErr = &OutputParseError{Err: err}
	} else {
		out.Outputs = rec
	}

	missing := make([]string, 0)
	for _, name := range expected {
		if rec == nil || !rec.Has(name) {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		out.Status = StatusWarn
		out.Missing = missing
		out.RunStatus = PartialSuccess
	}
	return out
}

// ParseOutput extracts the first JSON object candidate from a model response.
func ParseOutput(raw string) (*record.Record, error) {
	for _, candidate := range formatting.Candidates(raw) {
		if rec, err := record.ParseJSON([]byte(candidate)); err == nil {
			return rec, nil
		}
	}

	// formatting.Parse carries the ErrParseFailed sentinel and excerpt.
	_, err := formatting.Parse[map[string]any](raw)
	if err == nil {
		err = record.ErrNotMapping
	}
	return nil, err
}

func difference(required, present []string) []string {
	missing := make([]string, 0)
	for _, name := range required {
		if !slices.Contains(present, name) {
			missing = append(missing, name)
		}
	}
	return missing
}
