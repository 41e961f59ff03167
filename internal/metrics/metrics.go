// Package metrics exports Prometheus instrumentation for construction
// executions. PromTracer implements construct.Tracer, so wiring it is the
// same one-line decorator call as any other tracing backend.
package metrics

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

type spanStart struct {
	name    string
	started time.Time
	status  string
}

// PromTracer records execution counts and latencies per construction.
type PromTracer struct {
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec

	mu    sync.Mutex
	open  map[string]*spanStart
}

// NewPromTracer registers the engine metrics on reg and returns the
// tracer. Passing prometheus.DefaultRegisterer wires the default registry.
func NewPromTracer(reg prometheus.Registerer) *PromTracer {
	t := &PromTracer{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "librarian",
			Subsystem: "construct",
			Name:      "executions_total",
			Help:      "Construction executions by terminal status.",
		}, []string{"construction", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "librarian",
			Subsystem: "construct",
			Name:      "duration_seconds",
			Help:      "Construction execution latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"construction"}),
		open: make(map[string]*spanStart),
	}
	reg.MustRegister(t.executions, t.duration)
	return t
}

func (t *PromTracer) StartSpan(name string, attrs map[string]any) string {
	id := uuid.NewString()
	t.mu.Lock()
	t.open[id] = &spanStart{name: name, started: time.Now()}
	t.mu.Unlock()
	return id
}

func (t *PromTracer) EndSpan(spanID string) {
	t.mu.Lock()
	span, ok := t.open[spanID]
	delete(t.open, spanID)
	t.mu.Unlock()
	if !ok {
		return
	}
	status := span.status
	if status == "" {
		status = "unknown"
	}
	t.executions.WithLabelValues(span.name, status).Inc()
	t.duration.WithLabelValues(span.name).Observe(time.Since(span.started).Seconds())
}

// AddEvent is a no-op; metrics only need terminal status and latency.
func (t *PromTracer) AddEvent(spanID, name string, attrs map[string]any) {}

func (t *PromTracer) SetAttribute(spanID, key string, value any) {
	if key != "status" {
		return
	}
	s, ok := value.(string)
	if !ok {
		return
	}
	t.mu.Lock()
	if span, open := t.open[spanID]; open {
		span.status = s
	}
	t.mu.Unlock()
}
