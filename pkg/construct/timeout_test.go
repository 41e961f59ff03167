package construct

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTimeoutDeadlineFires(t *testing.T) {
	inner := &slowUnit{id: "slow", delay: 100 * time.Millisecond}
	w := WithTimeout[string, string](inner, 50*time.Millisecond)

	_, err := w.Execute(context.Background(), "in")

	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TimeoutError", err)
	}
	if te.Timeout != 50*time.Millisecond {
		t.Errorf("Timeout = %s, want 50ms", te.Timeout)
	}
	if te.ConstructionID != "slow" {
		t.Errorf("ConstructionID = %q", te.ConstructionID)
	}
}

func TestTimeoutFastEnough(t *testing.T) {
	inner := &slowUnit{id: "quick", delay: 10 * time.Millisecond}
	w := WithTimeout[string, string](inner, 50*time.Millisecond)

	result, err := w.Execute(context.Background(), "in")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Output != "in" {
		t.Errorf("output = %q, want the construction's own result", result.Output)
	}
}

func TestTimeoutWrapsChildFailure(t *testing.T) {
	inner := &countingUnit{id: "broken"}
	w := WithTimeout[string, string](inner, time.Second)

	_, err := w.Execute(context.Background(), "in")

	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *Error wrapping the child failure", err)
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		t.Error("a child failure must never be conflated with a timeout")
	}
}

func TestTimeoutCancelsLoser(t *testing.T) {
	// The raced construction observes its context, so losing the race
	// stops the underlying work instead of leaking it.
	started := make(chan struct{})
	stopped := make(chan struct{})
	inner := NewFunc("cooperative", "cooperative", func(ctx context.Context, input string) (*Result[string], error) {
		close(started)
		<-ctx.Done()
		close(stopped)
		return nil, ctx.Err()
	})
	w := WithTimeout[string, string](inner, 20*time.Millisecond)

	_, err := w.Execute(context.Background(), "in")
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TimeoutError", err)
	}

	<-started
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("losing construction never observed cancellation")
	}
}

func TestTimeoutPropagatesCallerCancellation(t *testing.T) {
	inner := &slowUnit{id: "slow", delay: time.Second}
	w := WithTimeout[string, string](inner, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := w.Execute(ctx, "in")
	var ce *CancelledError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CancelledError (caller cancellation is not a timeout)", err)
	}
}

func TestTimeoutID(t *testing.T) {
	w := WithTimeout[string, string](&slowUnit{id: "s", delay: 0}, 1500*time.Millisecond)
	if w.ID() != "timeout:1500ms:s" {
		t.Errorf("ID = %q", w.ID())
	}
}
