package construct

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"librarian/pkg/confidence"
)

func TestParallelAllMergesInOrder(t *testing.T) {
	branches := []Construction[string, string]{
		echoUnit("a", 0.9),
		echoUnit("b", 0.8),
		echoUnit("c", 0.5),
	}
	p := Parallel(branches, ModeAll)

	result, err := p.Execute(context.Background(), "in")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{"in:a", "in:b", "in:c"}
	if len(result.Output) != len(want) {
		t.Fatalf("got %d outputs, want %d", len(result.Output), len(want))
	}
	for i := range want {
		if result.Output[i] != want[i] {
			t.Errorf("output[%d] = %q, want %q (definition order, not completion order)", i, result.Output[i], want[i])
		}
	}

	if got := mustNumeric(t, result.Confidence); math.Abs(got-0.36) > 1e-9 {
		t.Errorf("all-mode confidence = %v, want 0.36", got)
	}
}

func TestParallelAnyConfidence(t *testing.T) {
	branches := []Construction[string, string]{
		echoUnit("a", 0.9),
		echoUnit("b", 0.8),
		echoUnit("c", 0.5),
	}
	p := Parallel(branches, ModeAny)

	result, err := p.Execute(context.Background(), "in")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := mustNumeric(t, result.Confidence); math.Abs(got-0.99) > 1e-9 {
		t.Errorf("any-mode confidence = %v, want 0.99", got)
	}
}

func TestParallelAllFailFast(t *testing.T) {
	branches := []Construction[string, string]{
		echoUnit("a", 0.9),
		&countingUnit{id: "boom"}, // always fails
		echoUnit("c", 0.5),
	}
	p := Parallel(branches, ModeAll)

	_, err := p.Execute(context.Background(), "in")
	if err == nil {
		t.Fatal("all mode must reject when any branch fails")
	}
	if !strings.Contains(err.Error(), "induced failure") {
		t.Errorf("err = %v, want the failing branch's error", err)
	}
}

func TestParallelAnyToleratesPartialFailure(t *testing.T) {
	branches := []Construction[string, string]{
		echoUnit("a", 0.9),
		&countingUnit{id: "boom"}, // always fails
		echoUnit("c", 0.5),
	}
	p := Parallel(branches, ModeAny)

	result, err := p.Execute(context.Background(), "in")
	if err != nil {
		t.Fatalf("any mode must tolerate a failing branch: %v", err)
	}

	if len(result.Output) != 2 {
		t.Fatalf("got %d outputs, want the 2 surviving branches", len(result.Output))
	}
	// Failed branch excluded from the noisy-or: 1 - 0.1*0.5.
	if got := mustNumeric(t, result.Confidence); math.Abs(got-0.95) > 1e-9 {
		t.Errorf("confidence = %v, want 0.95", got)
	}

	joined := strings.Join(result.EvidenceRefs, "\n")
	if !strings.Contains(joined, "parallel:branch:1:failed:boom") {
		t.Errorf("evidence should record the failed branch:\n%s", joined)
	}
}

func TestParallelAnyAllFailed(t *testing.T) {
	branches := []Construction[string, string]{
		&countingUnit{id: "b1"},
		&countingUnit{id: "b2"},
	}
	p := Parallel(branches, ModeAny)

	_, err := p.Execute(context.Background(), "in")
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if !strings.Contains(ce.Msg, "all 2 branches failed") {
		t.Errorf("Msg = %q", ce.Msg)
	}
}

func TestParallelEmpty(t *testing.T) {
	p := Parallel[string, string](nil, ModeAll)
	result, err := p.Execute(context.Background(), "in")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, ok := result.Confidence.(confidence.Absent); !ok {
		t.Errorf("empty parallel should yield absent confidence, got %s", confidence.Describe(result.Confidence))
	}
}

func TestParallelID(t *testing.T) {
	p := Parallel([]Construction[string, string]{echoUnit("a", 0.9), echoUnit("b", 0.8)}, ModeAny)
	if p.ID() != "parallel-any:[a,b]" {
		t.Errorf("ID = %q", p.ID())
	}
}
