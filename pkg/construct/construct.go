// Package construct defines the composable construction engine: a generic
// contract for asynchronous units of analysis work, combinators that
// sequence, fan out, and branch them, and decorators that add retry,
// deadline, caching, and tracing behavior. Every combinator and decorator
// is itself a Construction, so the contract is closed under composition.
//
// Each execution returns a Result carrying a typed confidence value and an
// append-only evidence trail; combinators merge child confidence via the
// propagation rules in pkg/confidence and concatenate evidence before
// returning upward.
package construct

import (
	"context"
	"time"

	"librarian/pkg/confidence"
)

// Construction is a named, composable unit of work. Identity is derived
// deterministically from composition structure, so equivalent pipelines
// produce equal IDs. Execute must honor ctx cancellation; it is the only
// suspension point in a composed pipeline.
type Construction[In, Out any] interface {
	ID() string
	Name() string
	Execute(ctx context.Context, input In) (*Result[Out], error)
}

// Estimator is optionally implemented by constructions that can state a
// pre-execution confidence estimate. Combinators compose estimates the
// same way they compose execution confidence.
type Estimator interface {
	EstimatedConfidence() confidence.Value
}

// Result is produced by every execution. EvidenceRefs are audit
// breadcrumbs, never decision inputs. Attempts and AttemptErrors are
// populated by the retry decorator and zero elsewhere.
type Result[Out any] struct {
	Output        Out               `json:"output"`
	Confidence    confidence.Value  `json:"confidence"`
	EvidenceRefs  []string          `json:"evidence_refs"`
	AnalysisTime  time.Duration     `json:"analysis_time"`
	Attempts      int               `json:"attempts,omitempty"`
	AttemptErrors []string          `json:"attempt_errors,omitempty"`
}

// Clone returns a shallow copy of the result with its own evidence slice,
// so decorators can annotate without mutating a shared instance.
func (r *Result[Out]) Clone() *Result[Out] {
	out := *r
	out.EvidenceRefs = make([]string, len(r.EvidenceRefs))
	copy(out.EvidenceRefs, r.EvidenceRefs)
	out.AttemptErrors = append([]string(nil), r.AttemptErrors...)
	return &out
}

// Func adapts a plain function into a leaf Construction, in the manner of
// http.HandlerFunc. Estimate may be nil when no pre-execution estimate
// exists.
type Func[In, Out any] struct {
	ConstructionID   string
	ConstructionName string
	Fn               func(ctx context.Context, input In) (*Result[Out], error)
	Estimate         confidence.Value
}

// NewFunc builds a leaf construction from a function.
func NewFunc[In, Out any](id, name string, fn func(ctx context.Context, input In) (*Result[Out], error)) *Func[In, Out] {
	return &Func[In, Out]{ConstructionID: id, ConstructionName: name, Fn: fn}
}

func (f *Func[In, Out]) ID() string   { return f.ConstructionID }
func (f *Func[In, Out]) Name() string { return f.ConstructionName }

func (f *Func[In, Out]) Execute(ctx context.Context, input In) (*Result[Out], error) {
	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{ConstructionID: f.ConstructionID, Err: err}
	}
	return f.Fn(ctx, input)
}

func (f *Func[In, Out]) EstimatedConfidence() confidence.Value {
	if f.Estimate == nil {
		return confidence.NewAbsent(confidence.ReasonUncalibrated)
	}
	return f.Estimate
}

// estimateOf returns a construction's pre-execution estimate, or
// Absent(uncalibrated) when it implements no Estimator.
func estimateOf(c any) confidence.Value {
	if e, ok := c.(Estimator); ok {
		return e.EstimatedConfidence()
	}
	return confidence.NewAbsent(confidence.ReasonUncalibrated)
}
