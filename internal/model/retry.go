package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Policy bounds model invocation: at most MaxAttempts calls, each limited
// to Timeout, separated by a fixed Delay.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Timeout     time.Duration
}

// Recorder observes individual attempts.
type Recorder interface {
	ModelAttempt(model string, err error)
}

type retryClient struct {
	next     Client
	policy   Policy
	recorder Recorder
	logger   *slog.Logger
}

// Retry wraps next with policy. recorder may be nil.
// Exhausted attempts fail with *ModelInvocationError; cancelling ctx stops
// retrying immediately.
func Retry(next Client, policy Policy, recorder Recorder, logger *slog.Logger) Client {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &retryClient{
		next:     next,
		policy:   policy,
		recorder: recorder,
		logger:   logger.With("system", "model-retry"),
	}
}

func (r *retryClient) Name() string {
	return r.next.Name()
}

func (r *retryClient) Complete(ctx context.Context, req Request) (Response, error) {
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if attempt > 1 && r.policy.Delay > 0 {
			select {
			case <-ctx.Done():
				return Response{}, r.fail(attempts, fmt.Errorf("retry cancelled: %w", ctx.Err()))
			case <-time.After(r.policy.Delay):
			}
		}

		attempts++
		resp, err := r.attempt(ctx, req)
		if r.recorder != nil {
			r.recorder.ModelAttempt(r.next.Name(), err)
		}
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}

		r.logger.WarnContext(ctx, "model attempt failed",
			"model", r.next.Name(),
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"error", err,
		)
	}

	return Response{}, r.fail(attempts, lastErr)
}

func (r *retryClient) attempt(ctx context.Context, req Request) (Response, error) {
	if r.policy.Timeout <= 0 {
		return r.next.Complete(ctx, req)
	}

	actx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()

	resp, err := r.next.Complete(actx, req)
	if err != nil && errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return Response{}, fmt.Errorf("attempt timed out after %v: %w", r.policy.Timeout, err)
	}
	return resp, err
}

func (r *retryClient) fail(attempts int, err error) error {
	return &ModelInvocationError{
		Model:    r.next.Name(),
		Attempts: attempts,
		Err:      err,
	}
}
