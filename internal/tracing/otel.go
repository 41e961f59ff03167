package tracing

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelTracer adapts the construction engine's span-id based Tracer
// contract onto an OpenTelemetry trace.Tracer. Spans are rooted per call;
// the engine's composition structure is carried in the
// construction_id attribute rather than parent/child span nesting.
type OTelTracer struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

// NewOTelTracer wraps an OpenTelemetry tracer.
func NewOTelTracer(tracer trace.Tracer) *OTelTracer {
	return &OTelTracer{tracer: tracer, spans: make(map[string]trace.Span)}
}

func (t *OTelTracer) StartSpan(name string, attrs map[string]any) string {
	_, span := t.tracer.Start(context.Background(), name, trace.WithAttributes(toAttributes(attrs)...))
	id := uuid.NewString()
	t.mu.Lock()
	t.spans[id] = span
	t.mu.Unlock()
	return id
}

func (t *OTelTracer) EndSpan(spanID string) {
	t.mu.Lock()
	span, ok := t.spans[spanID]
	delete(t.spans, spanID)
	t.mu.Unlock()
	if ok {
		span.End()
	}
}

func (t *OTelTracer) AddEvent(spanID, name string, attrs map[string]any) {
	if span, ok := t.lookup(spanID); ok {
		span.AddEvent(name, trace.WithAttributes(toAttributes(attrs)...))
	}
}

func (t *OTelTracer) SetAttribute(spanID, key string, value any) {
	span, ok := t.lookup(spanID)
	if !ok {
		return
	}
	span.SetAttributes(toAttribute(key, value))
	if key == "status" {
		if s, isString := value.(string); isString && s == "failed" {
			span.SetStatus(codes.Error, "construction failed")
		}
	}
}

func (t *OTelTracer) lookup(spanID string) (trace.Span, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	span, ok := t.spans[spanID]
	return span, ok
}

func toAttributes(attrs map[string]any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		out = append(out, toAttribute(k, v))
	}
	return out
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
