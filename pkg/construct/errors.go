package construct

import (
	"fmt"
	"time"
)

// Error is the generic failure of a named construction, optionally wrapping
// an underlying cause. It covers wrapped execution failures, cache
// key-generation failures, and exhausted-retry terminal failures.
type Error struct {
	ConstructionID string
	Msg            string
	Err            error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("construct %s: %s: %v", e.ConstructionID, e.Msg, e.Err)
	}
	return fmt.Sprintf("construct %s: %s", e.ConstructionID, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// TimeoutError reports a missed deadline. It is always distinguishable from
// a generic failure so callers can apply different remediation.
type TimeoutError struct {
	ConstructionID string
	Timeout        time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("construct %s: timed out after %s", e.ConstructionID, e.Timeout)
}

// CancelledError reports explicit cancellation observed through the
// execution context.
type CancelledError struct {
	ConstructionID string
	Err            error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("construct %s: cancelled: %v", e.ConstructionID, e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }
