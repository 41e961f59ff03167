package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"librarian/pkg/confidence"
	"librarian/pkg/construct"
)

func TestPromTracerCountsExecutions(t *testing.T) {
	reg := prometheus.NewRegistry()
	tracer := NewPromTracer(reg)

	ok := construct.NewFunc("scan", "scan", func(ctx context.Context, input string) (*construct.Result[string], error) {
		return &construct.Result[string]{
			Output:     input,
			Confidence: confidence.NewDeterministic(true, "scan passed"),
		}, nil
	})
	traced := construct.WithTracing[string, string](ok, tracer)

	for i := 0; i < 3; i++ {
		if _, err := traced.Execute(context.Background(), "in"); err != nil {
			t.Fatal(err)
		}
	}

	got := testutil.ToFloat64(tracer.executions.WithLabelValues("scan", "completed"))
	if got != 3 {
		t.Errorf("completed executions = %v, want 3", got)
	}
}

func TestPromTracerCountsFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	tracer := NewPromTracer(reg)

	boom := construct.NewFunc("boom", "boom", func(ctx context.Context, input string) (*construct.Result[string], error) {
		return nil, context.DeadlineExceeded
	})
	traced := construct.WithTracing[string, string](boom, tracer)

	if _, err := traced.Execute(context.Background(), "in"); err == nil {
		t.Fatal("expected error")
	}

	got := testutil.ToFloat64(tracer.executions.WithLabelValues("boom", "failed"))
	if got != 1 {
		t.Errorf("failed executions = %v, want 1", got)
	}
}

func TestPromTracerUnknownSpanEnd(t *testing.T) {
	reg := prometheus.NewRegistry()
	tracer := NewPromTracer(reg)
	tracer.EndSpan("never-started") // must not panic or record

	id := tracer.StartSpan("s", nil)
	time.Sleep(time.Millisecond)
	tracer.EndSpan(id)

	got := testutil.ToFloat64(tracer.executions.WithLabelValues("s", "unknown"))
	if got != 1 {
		t.Errorf("spans without a status land in unknown, got %v", got)
	}
}
