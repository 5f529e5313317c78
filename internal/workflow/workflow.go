// Package workflow executes a single agent run: normalize input, validate,
// process images, render prompts, invoke the model, and validate output.
//
// Every run yields a Result document. Failures are recorded in the result
// with status "error" rather than returned.
package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/envoy/internal/inputs"
	"github.com/JaimeStill/envoy/internal/model"
	"github.com/JaimeStill/envoy/internal/prompts"
	"github.com/JaimeStill/envoy/internal/validation"
	"github.com/JaimeStill/envoy/pkg/record"
)

// Execute runs rt.Agent against raw input and image sources.
func Execute(ctx context.Context, rt *Runtime, raw string, imageSources []string) *Result {
	start := rt.now()
	agent := rt.Agent
	logger := rt.Logger.With("agent", agent.Name)

	res := &Result{
		RunID:     uuid.NewString(),
		Agent:     agent.Name,
		Timestamp: start.Format(time.RFC3339),
		Status:    StatusSuccess,
		Inputs:    record.New(),
	}

	defer func() {
		elapsed := rt.now().Sub(start)
		res.ExecutionTime = elapsed.Seconds()
		if res.Validation.Empty() {
			res.Validation = nil
		}
		if rt.Observer != nil {
			rt.Observer.ObserveRun(agent.Name, res.Status, elapsed)
		}
		logger.InfoContext(ctx, "run complete",
			"run_id", res.RunID,
			"status", res.Status,
			"execution_time", elapsed.Round(time.Millisecond),
		)
	}()

	fail := func(err error) *Result {
		logger.ErrorContext(ctx, "run failed", "run_id", res.RunID, "error", err)
		res.Status = StatusError
		res.Error = &ErrorInfo{Type: ErrorType(err), Message: err.Error()}
		return res
	}

	logger.InfoContext(ctx, "run started", "run_id", res.RunID, "model", agent.ModelName)

	rec, err := inputs.Normalize(raw, imageSources)
	if err != nil {
		return fail(err)
	}
	res.Inputs = rec

	spec := agent.Spec

	if rt.Validation.TemplateEnabled() && len(spec.Inputs) > 0 {
		report := validation.TemplateReferences(spec.Inputs, agent.Prompts.Templates()...)
		res.Reports = append(res.Reports, report)
		if report.Status == validation.StatusWarn {
			logger.WarnContext(ctx, "prompt templates do not reference required fields", "missing", report.Missing)
			res.annotations().MissingTemplateRefs = report.Missing
		}
	}

	if rt.Validation.InputEnabled() && len(spec.Inputs) > 0 {
		report, err := validation.InputCompleteness(ctx, spec.Inputs, rec, rt.Input)
		res.Reports = append(res.Reports, report)
		if len(report.Missing) > 0 {
			res.annotations().MissingInputFields = report.Missing
		}
		if err != nil {
			return fail(err)
		}
		if report.Status == validation.StatusWarn {
			logger.WarnContext(ctx, "continuing with missing input fields", "missing", report.Missing)
		}
	}

	rec.Freeze()

	imageURLs, err := processImages(ctx, rt, res, rec.Strings(record.ImagesField))
	if err != nil {
		return fail(err)
	}

	pair := prompts.RenderPair(agent.Prompts, rec)

	resp, err := rt.Client.Complete(ctx, model.Request{
		System: pair.System,
		User:   pair.User,
		Images: imageURLs,
	})
	if err != nil {
		return fail(err)
	}
	res.RawResponse = resp.Content
	res.Usage = resp.Usage

	applyOutput(ctx, rt, res)

	if res.Validation != nil && len(res.Validation.ImageErrors) > 0 {
		res.Status = StatusPartialSuccess
	}

	return res
}

func processImages(ctx context.Context, rt *Runtime, res *Result, sources []string) ([]string, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	if !rt.Agent.Spec.IsVision() {
		rt.Logger.WarnContext(ctx, "images supplied to a text agent", "agent", rt.Agent.Name, "images", len(sources))
	}

	descriptors, failures, err := rt.Images.ProcessAll(ctx, sources, rt.ContinueOnImageError)
	if err != nil {
		return nil, err
	}

	for _, f := range failures {
		res.annotations().ImageErrors = append(res.annotations().ImageErrors, ImageError{
			Index:   f.Index,
			Source:  f.Source,
			Message: f.Err.Error(),
		})
	}

	urls := make([]string, len(descriptors))
	for i, d := range descriptors {
		urls[i] = d.URL
	}
	return urls, nil
}

// applyOutput parses the response and, when enabled, checks it against the
// declared outputs. Parsing always runs so structured responses are kept
// even without output validation.
func applyOutput(ctx context.Context, rt *Runtime, res *Result) {
	expected := rt.Agent.Spec.Outputs
	if !rt.Validation.OutputEnabled() {
		expected = nil
	}

	report := validation.OutputCompleteness(expected, res.RawResponse)
	res.Outputs = report.Outputs

	if len(expected) == 0 {
		if report.ParseErr != nil {
			rt.Logger.DebugContext(ctx, "model response is unstructured text", "agent", rt.Agent.Name)
		}
		return
	}

	if report.ParseErr != nil {
		rt.Logger.WarnContext(ctx, "model response is not structured", "agent", rt.Agent.Name, "error", report.ParseErr)
		res.annotations().OutputParseError = report.ParseErr.Error()
	}

	res.Reports = append(res.Reports, report.Report)
	if len(report.Missing) > 0 {
		rt.Logger.WarnContext(ctx, "model response is missing output fields", "agent", rt.Agent.Name, "missing", report.Missing)
		res.annotations().MissingOutputFields = report.Missing
	}
	res.Status = report.RunStatus
}
