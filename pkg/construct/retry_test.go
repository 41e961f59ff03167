package construct

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRetryExhaustsAttempts(t *testing.T) {
	inner := &countingUnit{id: "always-fails"}
	r := WithRetry[string, string](inner, RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond})

	_, err := r.Execute(context.Background(), "in")

	if inner.callCount() != 3 {
		t.Errorf("calls = %d, want exactly 3", inner.callCount())
	}
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if !strings.Contains(ce.Msg, "3 attempts") {
		t.Errorf("Msg = %q, want mention of 3 attempts", ce.Msg)
	}
	if ce.ConstructionID != "always-fails" {
		t.Errorf("ConstructionID = %q", ce.ConstructionID)
	}
}

func TestRetryEventualSuccess(t *testing.T) {
	inner := &countingUnit{id: "flaky", succeedOn: 3}
	r := WithRetry[string, string](inner, RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond})

	result, err := r.Execute(context.Background(), "in")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
	if len(result.AttemptErrors) != 2 {
		t.Errorf("AttemptErrors = %d, want 2", len(result.AttemptErrors))
	}
	// Confidence is the succeeding attempt's own confidence.
	if got := mustNumeric(t, result.Confidence); got != 0.75 {
		t.Errorf("confidence = %v, want 0.75", got)
	}
}

func TestRetryFirstTrySuccess(t *testing.T) {
	inner := &countingUnit{id: "solid", succeedOn: 1}
	r := WithRetry[string, string](inner, RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond})

	result, err := r.Execute(context.Background(), "in")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Attempts != 1 || len(result.AttemptErrors) != 0 {
		t.Errorf("Attempts = %d, AttemptErrors = %v; want 1 and empty", result.Attempts, result.AttemptErrors)
	}
}

func TestRetryNonRetryable(t *testing.T) {
	inner := &countingUnit{id: "fatal"}
	r := WithRetry[string, string](inner, RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		IsRetryable: func(error) bool { return false },
	})

	_, err := r.Execute(context.Background(), "in")
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.callCount() != 1 {
		t.Errorf("calls = %d, want 1 (non-retryable stops immediately)", inner.callCount())
	}
	var ce *Error
	if !errors.As(err, &ce) || !strings.Contains(ce.Msg, "non-retryable") {
		t.Errorf("err = %v, want non-retryable *Error", err)
	}
}

func TestRetryBackoffSchedule(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:   5,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      300 * time.Millisecond,
		BackoffFactor: 2,
	}.normalized()

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 300 * time.Millisecond}, // capped
		{4, 300 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := cfg.delayFor(tc.attempt); got != tc.want {
			t.Errorf("delayFor(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestRetryDefaults(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 0, BaseDelay: 50 * time.Millisecond}.normalized()
	if cfg.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1", cfg.MaxAttempts)
	}
	if cfg.MaxDelay != 500*time.Millisecond {
		t.Errorf("MaxDelay = %s, want 10x base", cfg.MaxDelay)
	}
	if cfg.BackoffFactor != 2 {
		t.Errorf("BackoffFactor = %v, want 2", cfg.BackoffFactor)
	}
}

func TestRetryObservesCancellation(t *testing.T) {
	inner := &countingUnit{id: "cancel-me"}
	r := WithRetry[string, string](inner, RetryConfig{MaxAttempts: 10, BaseDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := r.Execute(ctx, "in")
	var ce *CancelledError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CancelledError (backoff must not outlive the context)", err)
	}
	if inner.callCount() != 1 {
		t.Errorf("calls = %d, want 1", inner.callCount())
	}
}
