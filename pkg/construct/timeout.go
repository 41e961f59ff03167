package construct

import (
	"context"
	"errors"
	"fmt"
	"time"

	"librarian/pkg/confidence"
)

type timeoutConstruction[In, Out any] struct {
	inner   Construction[In, Out]
	timeout time.Duration
}

// WithTimeout races a construction against a deadline. A missed deadline
// surfaces as *TimeoutError, never as a generic failure. The wrapped
// construction runs under a context cancelled when the deadline fires, so
// a cooperative construction stops rather than continuing in the
// background.
func WithTimeout[In, Out any](inner Construction[In, Out], timeout time.Duration) Construction[In, Out] {
	return &timeoutConstruction[In, Out]{inner: inner, timeout: timeout}
}

func (t *timeoutConstruction[In, Out]) ID() string {
	return fmt.Sprintf("timeout:%dms:%s", t.timeout.Milliseconds(), t.inner.ID())
}

func (t *timeoutConstruction[In, Out]) Name() string {
	return fmt.Sprintf("%s (within %s)", t.inner.Name(), t.timeout)
}

type timeoutOutcome[Out any] struct {
	result *Result[Out]
	err    error
}

func (t *timeoutConstruction[In, Out]) Execute(ctx context.Context, input In) (*Result[Out], error) {
	execCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	// Buffered so the loser of the race can finish without leaking a
	// goroutine blocked on send.
	done := make(chan timeoutOutcome[Out], 1)
	go func() {
		r, err := t.inner.Execute(execCtx, input)
		done <- timeoutOutcome[Out]{result: r, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if ctx.Err() != nil {
				return nil, &CancelledError{ConstructionID: t.inner.ID(), Err: ctx.Err()}
			}
			if errors.Is(out.err, context.DeadlineExceeded) {
				return nil, &TimeoutError{ConstructionID: t.inner.ID(), Timeout: t.timeout}
			}
			var te *TimeoutError
			var ce *CancelledError
			if errors.As(out.err, &te) || errors.As(out.err, &ce) {
				return nil, out.err
			}
			return nil, &Error{ConstructionID: t.inner.ID(), Msg: "execution failed", Err: out.err}
		}
		return out.result, nil
	case <-execCtx.Done():
		if ctx.Err() != nil {
			return nil, &CancelledError{ConstructionID: t.inner.ID(), Err: ctx.Err()}
		}
		return nil, &TimeoutError{ConstructionID: t.inner.ID(), Timeout: t.timeout}
	}
}

func (t *timeoutConstruction[In, Out]) EstimatedConfidence() confidence.Value {
	return estimateOf(t.inner)
}
