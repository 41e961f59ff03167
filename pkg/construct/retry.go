package construct

import (
	"context"
	"fmt"
	"time"

	"librarian/pkg/confidence"
)

// RetryConfig bounds re-execution of a failed construction.
type RetryConfig struct {
	// MaxAttempts is the total number of executions, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// BaseDelay is the sleep before the second attempt. Subsequent delays
	// multiply by BackoffFactor, capped at MaxDelay.
	BaseDelay time.Duration

	// MaxDelay caps the backoff. Zero defaults to BaseDelay * 10.
	MaxDelay time.Duration

	// BackoffFactor scales the delay per attempt. Zero defaults to 2.
	BackoffFactor float64

	// IsRetryable filters which errors warrant another attempt. Nil retries
	// every error.
	IsRetryable func(error) bool
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = c.BaseDelay * 10
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = 2
	}
	return c
}

// delayFor returns the backoff before attempt n+1, where attempt counts
// from 1.
func (c RetryConfig) delayFor(attempt int) time.Duration {
	d := float64(c.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= c.BackoffFactor
	}
	if ceil := float64(c.MaxDelay); d > ceil {
		d = ceil
	}
	return time.Duration(d)
}

type retryConstruction[In, Out any] struct {
	inner  Construction[In, Out]
	config RetryConfig
}

// WithRetry wraps a construction with bounded, backed-off re-execution.
// A successful result reports the attempt count and the errors of the
// failed attempts that preceded it. Retrying does not raise confidence:
// the result keeps the confidence of the attempt that succeeded.
func WithRetry[In, Out any](inner Construction[In, Out], config RetryConfig) Construction[In, Out] {
	return &retryConstruction[In, Out]{inner: inner, config: config.normalized()}
}

func (r *retryConstruction[In, Out]) ID() string   { return "retry:" + r.inner.ID() }
func (r *retryConstruction[In, Out]) Name() string { return r.inner.Name() + " (retried)" }

func (r *retryConstruction[In, Out]) Execute(ctx context.Context, input In) (*Result[Out], error) {
	var attemptErrors []string
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		result, err := r.inner.Execute(ctx, input)
		if err == nil {
			out := result.Clone()
			out.Attempts = attempt
			out.AttemptErrors = attemptErrors
			if attempt > 1 {
				out.EvidenceRefs = append(out.EvidenceRefs,
					fmt.Sprintf("retry:succeeded:attempt:%d", attempt))
			}
			return out, nil
		}

		lastErr = err
		attemptErrors = append(attemptErrors, err.Error())

		if r.config.IsRetryable != nil && !r.config.IsRetryable(err) {
			return nil, &Error{
				ConstructionID: r.inner.ID(),
				Msg:            fmt.Sprintf("non-retryable error on attempt %d", attempt),
				Err:            err,
			}
		}
		if attempt == r.config.MaxAttempts {
			break
		}
		if err := sleepCtx(ctx, r.config.delayFor(attempt)); err != nil {
			return nil, &CancelledError{ConstructionID: r.inner.ID(), Err: err}
		}
	}

	return nil, &Error{
		ConstructionID: r.inner.ID(),
		Msg:            fmt.Sprintf("failed after %d attempts", r.config.MaxAttempts),
		Err:            lastErr,
	}
}

func (r *retryConstruction[In, Out]) EstimatedConfidence() confidence.Value {
	return estimateOf(r.inner)
}

// sleepCtx blocks this logical chain for d, returning early if the context
// is cancelled. The surrounding program keeps running.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
