package workflow

import (
	"errors"

	"github.com/JaimeStill/envoy/internal/images"
	"github.com/JaimeStill/envoy/internal/inputs"
	"github.com/JaimeStill/envoy/internal/model"
	"github.com/JaimeStill/envoy/internal/validation"
	"github.com/JaimeStill/envoy/pkg/record"
)

// Run status values.
const (
	StatusSuccess        = validation.Success
	StatusPartialSuccess = validation.PartialSuccess
	StatusError          = "error"
)

// Process exit codes by status.
const (
	ExitSuccess        = 0
	ExitPartialSuccess = 1
	ExitError          = 2
	ExitFailure        = 3
)

// Result is the run result document.
type Result struct {
	RunID         string         `json:"run_id" yaml:"run_id"`
	Agent         string         `json:"agent" yaml:"agent"`
	Timestamp     string         `json:"timestamp" yaml:"timestamp"`
	Status        string         `json:"status" yaml:"status"`
	ExecutionTime float64        `json:"execution_time" yaml:"execution_time"`
	Inputs        *record.Record `json:"inputs" yaml:"inputs"`
	Outputs       *record.Record `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	RawResponse   string         `json:"raw_response,omitempty" yaml:"raw_response,omitempty"`
	Validation    *Validation    `json:"validation,omitempty" yaml:"validation,omitempty"`
	Error         *ErrorInfo     `json:"error,omitempty" yaml:"error,omitempty"`

	Reports []validation.Report `json:"-" yaml:"-"`
	Usage   model.Usage         `json:"-" yaml:"-"`
}

// Validation carries the annotations produced by the validation layers.
type Validation struct {
	MissingTemplateRefs []string     `json:"missing_template_refs,omitempty" yaml:"missing_template_refs,omitempty"`
	MissingInputFields  []string     `json:"missing_input_fields,omitempty" yaml:"missing_input_fields,omitempty"`
	MissingOutputFields []string     `json:"missing_output_fields,omitempty" yaml:"missing_output_fields,omitempty"`
	OutputParseError    string       `json:"output_parse_error,omitempty" yaml:"output_parse_error,omitempty"`
	ImageErrors         []ImageError `json:"image_errors,omitempty" yaml:"image_errors,omitempty"`
}

// Empty reports whether no annotation is set.
func (v *Validation) Empty() bool {
	return v == nil ||
		len(v.MissingTemplateRefs) == 0 &&
			len(v.MissingInputFields) == 0 &&
			len(v.MissingOutputFields) == 0 &&
			v.OutputParseError == "" &&
			len(v.ImageErrors) == 0
}

// ImageError records an image skipped during processing.
type ImageError struct {
	Index   int    `json:"index" yaml:"index"`
	Source  string `json:"source" yaml:"source"`
	Message string `json:"message" yaml:"message"`
}

// ErrorInfo describes the failure that aborted a run.
type ErrorInfo struct {
	Type    string `json:"type" yaml:"type"`
	Message string `json:"message" yaml:"message"`
}

// ExitCode maps the result status to a process exit code.
func (r *Result) ExitCode() int {
	switch r.Status {
	case StatusSuccess:
		return ExitSuccess
	case StatusPartialSuccess:
		return ExitPartialSuccess
	default:
		return ExitError
	}
}

// OutputFields returns the number of parsed output fields.
func (r *Result) OutputFields() int {
	if r.Outputs == nil {
		return 0
	}
	return r.Outputs.Len()
}

func (r *Result) annotations() *Validation {
	if r.Validation == nil {
		r.Validation = &Validation{}
	}
	return r.Validation
}

// ErrorType names the failure category of err.
func ErrorType(err error) string {
	var (
		malformed  *inputs.MalformedInputError
		incomplete *validation.IncompleteInputError
		image      *images.ImageProcessingError
		invocation *model.ModelInvocationError
	)

	switch {
	case errors.As(err, &malformed):
		return "MalformedInputError"
	case errors.As(err, &incomplete):
		return "IncompleteInputError"
	case errors.As(err, &image):
		return "ImageProcessingError"
	case errors.As(err, &invocation):
		return "ModelInvocationError"
	default:
		return "Error"
	}
}
