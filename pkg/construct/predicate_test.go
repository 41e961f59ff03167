package construct

import (
	"context"
	"testing"
	"time"

	"librarian/pkg/confidence"
)

func TestCompilePredicateOverResult(t *testing.T) {
	pred, err := CompilePredicate(`output.severity == "high" && confidence >= config.threshold`,
		map[string]any{"threshold": 0.7})
	if err != nil {
		t.Fatal(err)
	}

	input := &Result[any]{
		Output:     map[string]any{"severity": "high"},
		Confidence: confidence.NewMeasured(0.8, 10, 0.9, [2]float64{0.75, 0.85}, time.Now()),
	}
	taken, err := pred(context.Background(), input)
	if err != nil {
		t.Fatal(err)
	}
	if !taken {
		t.Error("predicate should match high severity at 0.8 confidence")
	}

	input.Confidence = confidence.NewMeasured(0.5, 10, 0.9, [2]float64{0.45, 0.55}, time.Now())
	taken, err = pred(context.Background(), input)
	if err != nil {
		t.Fatal(err)
	}
	if taken {
		t.Error("predicate should reject below the threshold")
	}
}

func TestCompilePredicateAbsentConfidence(t *testing.T) {
	pred, err := CompilePredicate(`confidence < 0`, nil)
	if err != nil {
		t.Fatal(err)
	}
	input := &Result[any]{Confidence: confidence.NewAbsent(confidence.ReasonUncalibrated)}
	taken, err := pred(context.Background(), input)
	if err != nil {
		t.Fatal(err)
	}
	if !taken {
		t.Error("absent confidence is surfaced as -1")
	}
}

func TestCompilePredicateRawInput(t *testing.T) {
	pred, err := CompilePredicate(`input.language == "go"`, nil)
	if err != nil {
		t.Fatal(err)
	}
	taken, err := pred(context.Background(), map[string]any{"language": "go"})
	if err != nil {
		t.Fatal(err)
	}
	if !taken {
		t.Error("raw inputs are exposed under input")
	}
}

func TestCompilePredicateBadSyntax(t *testing.T) {
	if _, err := CompilePredicate(`&&&`, nil); err == nil {
		t.Error("invalid expression must fail at compile time")
	}
}
