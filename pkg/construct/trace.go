package construct

import (
	"context"
	"strings"
	"time"

	"librarian/pkg/confidence"
)

// Tracer is the observability collaborator consumed by the trace decorator.
// Implementations may be shared across goroutines; the engine issues calls
// but never assumes exclusive ownership.
type Tracer interface {
	StartSpan(name string, attrs map[string]any) (spanID string)
	EndSpan(spanID string)
	AddEvent(spanID, name string, attrs map[string]any)
	SetAttribute(spanID, key string, value any)
}

type traceConstruction[In, Out any] struct {
	inner  Construction[In, Out]
	tracer Tracer
}

// WithTracing instruments a construction with span lifecycle events.
// Confidence and payload pass through untouched; only the evidence trail
// gains a trace marker. EndSpan fires on every exit path, including errors.
func WithTracing[In, Out any](inner Construction[In, Out], tracer Tracer) Construction[In, Out] {
	return &traceConstruction[In, Out]{inner: inner, tracer: tracer}
}

func (t *traceConstruction[In, Out]) ID() string   { return "trace:" + t.inner.ID() }
func (t *traceConstruction[In, Out]) Name() string { return t.inner.Name() }

func (t *traceConstruction[In, Out]) Execute(ctx context.Context, input In) (_ *Result[Out], err error) {
	spanID := t.tracer.StartSpan(t.inner.Name(), map[string]any{
		"construction_id": t.inner.ID(),
	})
	defer t.tracer.EndSpan(spanID)

	t.tracer.AddEvent(spanID, "execution_started", nil)
	start := time.Now()

	result, err := t.inner.Execute(ctx, input)
	elapsed := time.Since(start)
	t.tracer.SetAttribute(spanID, "duration_ms", elapsed.Milliseconds())

	if err != nil {
		t.tracer.AddEvent(spanID, "execution_failed", map[string]any{"error": err.Error()})
		t.tracer.SetAttribute(spanID, "status", "failed")
		return nil, err
	}

	t.tracer.AddEvent(spanID, "execution_completed", nil)
	t.tracer.SetAttribute(spanID, "status", "completed")
	t.tracer.SetAttribute(spanID, "confidence", confidence.Describe(result.Confidence))

	out := result.Clone()
	out.EvidenceRefs = append(out.EvidenceRefs, "trace:"+spanID)
	return out, nil
}

func (t *traceConstruction[In, Out]) EstimatedConfidence() confidence.Value {
	return estimateOf(t.inner)
}

// MultiTracer fans every call out to several backends, so a pipeline can
// feed spans and metrics at once. Span IDs are joined with "|".
type MultiTracer []Tracer

const multiSpanSep = "|"

func (m MultiTracer) StartSpan(name string, attrs map[string]any) string {
	ids := make([]string, len(m))
	for i, t := range m {
		ids[i] = t.StartSpan(name, attrs)
	}
	return strings.Join(ids, multiSpanSep)
}

func (m MultiTracer) EndSpan(spanID string) {
	for i, id := range m.split(spanID) {
		m[i].EndSpan(id)
	}
}

func (m MultiTracer) AddEvent(spanID, name string, attrs map[string]any) {
	for i, id := range m.split(spanID) {
		m[i].AddEvent(id, name, attrs)
	}
}

func (m MultiTracer) SetAttribute(spanID, key string, value any) {
	for i, id := range m.split(spanID) {
		m[i].SetAttribute(id, key, value)
	}
}

func (m MultiTracer) split(spanID string) []string {
	ids := strings.Split(spanID, multiSpanSep)
	if len(ids) != len(m) {
		return nil
	}
	return ids
}
