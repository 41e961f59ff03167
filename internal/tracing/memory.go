// Package tracing provides Tracer implementations for the construction
// engine: an in-memory recorder for tests and CLI summaries, and an
// OpenTelemetry adapter for real backends.
package tracing

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SpanEvent is a single named occurrence inside a span.
type SpanEvent struct {
	Name  string
	Attrs map[string]any
	At    time.Time
}

// Span is a recorded execution interval.
type Span struct {
	ID         string
	Name       string
	Attributes map[string]any
	Events     []SpanEvent
	StartedAt  time.Time
	EndedAt    time.Time // zero while open
}

// MemoryTracer accumulates spans in memory. Safe for concurrent use.
type MemoryTracer struct {
	mu    sync.Mutex
	spans map[string]*Span
	order []string
}

// NewMemoryTracer returns an empty in-memory tracer.
func NewMemoryTracer() *MemoryTracer {
	return &MemoryTracer{spans: make(map[string]*Span)}
}

func (t *MemoryTracer) StartSpan(name string, attrs map[string]any) string {
	id := uuid.NewString()
	t.mu.Lock()
	defer t.mu.Unlock()
	span := &Span{ID: id, Name: name, Attributes: map[string]any{}, StartedAt: time.Now()}
	for k, v := range attrs {
		span.Attributes[k] = v
	}
	t.spans[id] = span
	t.order = append(t.order, id)
	return id
}

func (t *MemoryTracer) EndSpan(spanID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if span, ok := t.spans[spanID]; ok && span.EndedAt.IsZero() {
		span.EndedAt = time.Now()
	}
}

func (t *MemoryTracer) AddEvent(spanID, name string, attrs map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if span, ok := t.spans[spanID]; ok {
		span.Events = append(span.Events, SpanEvent{Name: name, Attrs: attrs, At: time.Now()})
	}
}

func (t *MemoryTracer) SetAttribute(spanID, key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if span, ok := t.spans[spanID]; ok {
		span.Attributes[key] = value
	}
}

// Spans returns copies of all recorded spans in start order.
func (t *MemoryTracer) Spans() []Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Span, 0, len(t.order))
	for _, id := range t.order {
		span := t.spans[id]
		cp := *span
		cp.Events = append([]SpanEvent(nil), span.Events...)
		cp.Attributes = make(map[string]any, len(span.Attributes))
		for k, v := range span.Attributes {
			cp.Attributes[k] = v
		}
		out = append(out, cp)
	}
	return out
}

// Reset clears recorded spans.
func (t *MemoryTracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = make(map[string]*Span)
	t.order = nil
}
