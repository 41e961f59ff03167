package tracing

import (
	"testing"
)

func TestMemoryTracerLifecycle(t *testing.T) {
	tr := NewMemoryTracer()

	id := tr.StartSpan("quality-scan", map[string]any{"construction_id": "quality-scan"})
	tr.AddEvent(id, "execution_started", nil)
	tr.SetAttribute(id, "status", "completed")
	tr.EndSpan(id)

	spans := tr.Spans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name != "quality-scan" {
		t.Errorf("name = %q", span.Name)
	}
	if span.Attributes["status"] != "completed" {
		t.Errorf("attributes = %v", span.Attributes)
	}
	if len(span.Events) != 1 || span.Events[0].Name != "execution_started" {
		t.Errorf("events = %v", span.Events)
	}
	if span.EndedAt.IsZero() {
		t.Error("EndSpan did not close the span")
	}
}

func TestMemoryTracerUnknownSpanIsNoop(t *testing.T) {
	tr := NewMemoryTracer()
	tr.AddEvent("missing", "x", nil)
	tr.SetAttribute("missing", "k", "v")
	tr.EndSpan("missing")
	if len(tr.Spans()) != 0 {
		t.Error("operations on unknown spans must not create spans")
	}
}

func TestMemoryTracerSpansAreCopies(t *testing.T) {
	tr := NewMemoryTracer()
	id := tr.StartSpan("s", nil)
	tr.EndSpan(id)

	spans := tr.Spans()
	spans[0].Attributes["mutated"] = true

	if _, ok := tr.Spans()[0].Attributes["mutated"]; ok {
		t.Error("Spans must return copies")
	}
}

func TestMemoryTracerReset(t *testing.T) {
	tr := NewMemoryTracer()
	tr.StartSpan("s", nil)
	tr.Reset()
	if len(tr.Spans()) != 0 {
		t.Error("Reset should clear spans")
	}
}
