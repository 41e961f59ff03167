package construct

import "time"

// Pipeline is a fluent assembly helper. Every method returns a new Pipeline
// wrapping a new composed construction; nothing is mutated, so a partially
// built pipeline can be branched safely. Pipelines have no execution-time
// behavior of their own.
type Pipeline[In, Out any] struct {
	construction Construction[In, Out]
}

// NewPipeline starts a pipeline from an initial construction.
func NewPipeline[In, Out any](c Construction[In, Out]) *Pipeline[In, Out] {
	return &Pipeline[In, Out]{construction: c}
}

// Then chains the pipeline into a next construction, which receives the
// previous stage's entire Result as input. A top-level function because Go
// methods cannot introduce new type parameters.
func Then[In, Mid, Out any](p *Pipeline[In, Mid], next Construction[*Result[Mid], Out]) *Pipeline[In, Out] {
	return &Pipeline[In, Out]{construction: Sequence(p.construction, next)}
}

// WithRetry wraps the pipeline so far with bounded re-execution.
func (p *Pipeline[In, Out]) WithRetry(config RetryConfig) *Pipeline[In, Out] {
	return &Pipeline[In, Out]{construction: WithRetry(p.construction, config)}
}

// WithTimeout wraps the pipeline so far with a deadline.
func (p *Pipeline[In, Out]) WithTimeout(timeout time.Duration) *Pipeline[In, Out] {
	return &Pipeline[In, Out]{construction: WithTimeout(p.construction, timeout)}
}

// WithCache wraps the pipeline so far with input-keyed memoization.
func (p *Pipeline[In, Out]) WithCache(config CacheConfig[In]) *Pipeline[In, Out] {
	return &Pipeline[In, Out]{construction: WithCache(p.construction, config)}
}

// WithTracing wraps the pipeline so far with span instrumentation.
func (p *Pipeline[In, Out]) WithTracing(tracer Tracer) *Pipeline[In, Out] {
	return &Pipeline[In, Out]{construction: WithTracing(p.construction, tracer)}
}

// Build returns the composed construction.
func (p *Pipeline[In, Out]) Build() Construction[In, Out] {
	return p.construction
}

// ParallelBuilder assembles a fan-out construction. Like Pipeline, every
// method returns a new builder.
type ParallelBuilder[In, Out any] struct {
	branches []Construction[In, Out]
	mode     ParallelMode
}

// NewParallelBuilder starts an empty parallel group in "all" mode.
func NewParallelBuilder[In, Out any]() *ParallelBuilder[In, Out] {
	return &ParallelBuilder[In, Out]{mode: ModeAll}
}

// Add appends a branch.
func (b *ParallelBuilder[In, Out]) Add(c Construction[In, Out]) *ParallelBuilder[In, Out] {
	branches := make([]Construction[In, Out], len(b.branches)+1)
	copy(branches, b.branches)
	branches[len(b.branches)] = c
	return &ParallelBuilder[In, Out]{branches: branches, mode: b.mode}
}

// RequireAll selects fail-fast all-must-succeed aggregation.
func (b *ParallelBuilder[In, Out]) RequireAll() *ParallelBuilder[In, Out] {
	return &ParallelBuilder[In, Out]{branches: b.branches, mode: ModeAll}
}

// RequireAny selects failure-tolerant any-may-succeed aggregation.
func (b *ParallelBuilder[In, Out]) RequireAny() *ParallelBuilder[In, Out] {
	return &ParallelBuilder[In, Out]{branches: b.branches, mode: ModeAny}
}

// Build returns the composed parallel construction.
func (b *ParallelBuilder[In, Out]) Build() Construction[In, []Out] {
	return Parallel(b.branches, b.mode)
}
