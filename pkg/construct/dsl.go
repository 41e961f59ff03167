package construct

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"librarian/pkg/confidence"
)

// Unit is the uniform construction shape used by DSL-assembled pipelines.
// Typed pipelines use the generic API directly; the DSL trades static
// types for declarative assembly.
type Unit = Construction[any, any]

// Registry maps leaf unit names to constructions for DSL assembly.
type Registry map[string]Unit

// Register adds a unit under its own name. Registering a duplicate name is
// an error so pipeline files stay unambiguous.
func (r Registry) Register(u Unit) error {
	if _, exists := r[u.Name()]; exists {
		return fmt.Errorf("unit %q already registered", u.Name())
	}
	r[u.Name()] = u
	return nil
}

// Names returns the registered unit names in map order.
func (r Registry) Names() []string {
	out := make([]string, 0, len(r))
	for name := range r {
		out = append(out, name)
	}
	return out
}

// PipelineDef is the top-level DSL structure for declaring a composed
// pipeline. Steps execute in order; each step after the first receives the
// previous step's entire result as its input.
type PipelineDef struct {
	Pipeline    string         `yaml:"pipeline"`
	Description string         `yaml:"description,omitempty"`
	Vars        map[string]any `yaml:"vars,omitempty"`
	Steps       []StepDef      `yaml:"steps"`
}

// StepDef declares one pipeline stage: exactly one of Unit, Parallel, or
// When/Then(/Else) must be set. Decorator settings apply to the stage they
// appear on, innermost first: cache, then retry, then timeout, then trace.
type StepDef struct {
	Unit     string       `yaml:"unit,omitempty"`
	Parallel *ParallelDef `yaml:"parallel,omitempty"`
	When     string       `yaml:"when,omitempty"`
	Then     string       `yaml:"then,omitempty"`
	Else     string       `yaml:"else,omitempty"`

	Retry     *RetryDef `yaml:"retry,omitempty"`
	TimeoutMS int       `yaml:"timeout_ms,omitempty"`
	Cache     *CacheDef `yaml:"cache,omitempty"`
	Trace     bool      `yaml:"trace,omitempty"`
}

// ParallelDef declares a fan-out stage.
type ParallelDef struct {
	Mode     string   `yaml:"mode"` // "all" or "any"
	Branches []string `yaml:"branches"`
}

// RetryDef mirrors RetryConfig in wire-friendly units.
type RetryDef struct {
	MaxAttempts   int     `yaml:"max_attempts"`
	BaseDelayMS   int     `yaml:"base_delay_ms"`
	MaxDelayMS    int     `yaml:"max_delay_ms,omitempty"`
	BackoffFactor float64 `yaml:"backoff_factor,omitempty"`
}

// CacheDef mirrors CacheConfig in wire-friendly units.
type CacheDef struct {
	TTLMS      int `yaml:"ttl_ms"`
	MaxEntries int `yaml:"max_entries,omitempty"`
}

// LoadPipelineDef parses a YAML pipeline definition.
func LoadPipelineDef(data []byte) (*PipelineDef, error) {
	var def PipelineDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse pipeline YAML: %w", err)
	}
	return &def, nil
}

// MarshalYAML serializes a PipelineDef back to YAML.
func (def *PipelineDef) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(def)
}

// Validate checks structural and referential integrity against a registry:
// pipeline name present, at least one step, every step declaring exactly
// one stage kind, and every referenced unit registered.
func (def *PipelineDef) Validate(reg Registry) error {
	if def.Pipeline == "" {
		return fmt.Errorf("pipeline name is required")
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, step := range def.Steps {
		kinds := 0
		if step.Unit != "" {
			kinds++
			if _, ok := reg[step.Unit]; !ok {
				return fmt.Errorf("step %d: unknown unit %q", i, step.Unit)
			}
		}
		if step.Parallel != nil {
			kinds++
			if step.Parallel.Mode != string(ModeAll) && step.Parallel.Mode != string(ModeAny) {
				return fmt.Errorf("step %d: parallel mode must be %q or %q", i, ModeAll, ModeAny)
			}
			if len(step.Parallel.Branches) == 0 {
				return fmt.Errorf("step %d: parallel requires at least one branch", i)
			}
			for _, name := range step.Parallel.Branches {
				if _, ok := reg[name]; !ok {
					return fmt.Errorf("step %d: unknown parallel branch %q", i, name)
				}
			}
		}
		if step.When != "" {
			kinds++
			if step.Then == "" || step.Else == "" {
				return fmt.Errorf("step %d: when requires both then and else", i)
			}
			for _, name := range []string{step.Then, step.Else} {
				if _, ok := reg[name]; !ok {
					return fmt.Errorf("step %d: unknown conditional branch %q", i, name)
				}
			}
			if _, err := CompilePredicate(step.When, def.Vars); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}
		if kinds != 1 {
			return fmt.Errorf("step %d: exactly one of unit, parallel, or when must be set", i)
		}
		if step.Retry != nil && step.Retry.MaxAttempts < 1 {
			return fmt.Errorf("step %d: retry max_attempts must be >= 1", i)
		}
	}
	return nil
}

// Build assembles the definition into a single composed construction. The
// tracer may be nil when no step requests tracing; a step with trace: true
// and a nil tracer is a build error.
func (def *PipelineDef) Build(reg Registry, tracer Tracer) (Unit, error) {
	if err := def.Validate(reg); err != nil {
		return nil, err
	}

	composed, err := def.buildStage(def.Steps[0], reg, tracer)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(def.Steps); i++ {
		next, err := def.buildStage(def.Steps[i], reg, tracer)
		if err != nil {
			return nil, err
		}
		composed = Sequence(composed, asResultInput(next))
	}
	return asPlain(composed), nil
}

// buildStage assembles one step and applies its decorators.
func (def *PipelineDef) buildStage(step StepDef, reg Registry, tracer Tracer) (Unit, error) {
	var stage Unit
	switch {
	case step.Unit != "":
		stage = reg[step.Unit]
	case step.Parallel != nil:
		branches := make([]Unit, len(step.Parallel.Branches))
		for i, name := range step.Parallel.Branches {
			branches[i] = reg[name]
		}
		stage = collapseParallel(Parallel(branches, ParallelMode(step.Parallel.Mode)))
	default:
		pred, err := CompilePredicate(step.When, def.Vars)
		if err != nil {
			return nil, err
		}
		stage = Conditional[any, any](pred, reg[step.Then], reg[step.Else])
	}

	if step.Cache != nil {
		stage = WithCache(stage, CacheConfig[any]{
			TTL:        time.Duration(step.Cache.TTLMS) * time.Millisecond,
			MaxEntries: step.Cache.MaxEntries,
		})
	}
	if step.Retry != nil {
		stage = WithRetry(stage, RetryConfig{
			MaxAttempts:   step.Retry.MaxAttempts,
			BaseDelay:     time.Duration(step.Retry.BaseDelayMS) * time.Millisecond,
			MaxDelay:      time.Duration(step.Retry.MaxDelayMS) * time.Millisecond,
			BackoffFactor: step.Retry.BackoffFactor,
		})
	}
	if step.TimeoutMS > 0 {
		stage = WithTimeout(stage, time.Duration(step.TimeoutMS)*time.Millisecond)
	}
	if step.Trace {
		if tracer == nil {
			return nil, fmt.Errorf("step requests tracing but no tracer was provided")
		}
		stage = WithTracing(stage, tracer)
	}
	return stage, nil
}

// asResultInput adapts a Unit so it can terminate a Sequence, which hands
// the prior stage's whole *Result[any] onward as the unit's input.
func asResultInput(u Unit) Construction[*Result[any], any] {
	return &resultInputConstruction{inner: u}
}

type resultInputConstruction struct {
	inner Unit
}

func (a *resultInputConstruction) ID() string   { return a.inner.ID() }
func (a *resultInputConstruction) Name() string { return a.inner.Name() }

func (a *resultInputConstruction) Execute(ctx context.Context, input *Result[any]) (*Result[any], error) {
	return a.inner.Execute(ctx, input)
}

func (a *resultInputConstruction) EstimatedConfidence() confidence.Value {
	return estimateOf(a.inner)
}

// asPlain narrows a sequence-composed construction back to the uniform
// Unit shape.
func asPlain(c Construction[any, any]) Unit { return c }

// collapseParallel boxes a parallel group's []any output into a single any
// so the group composes as a Unit.
func collapseParallel(p Construction[any, []any]) Unit {
	return &collapsedParallel{inner: p}
}

type collapsedParallel struct {
	inner Construction[any, []any]
}

func (cp *collapsedParallel) ID() string   { return cp.inner.ID() }
func (cp *collapsedParallel) Name() string { return cp.inner.Name() }

func (cp *collapsedParallel) Execute(ctx context.Context, input any) (*Result[any], error) {
	r, err := cp.inner.Execute(ctx, input)
	if err != nil {
		return nil, err
	}
	return &Result[any]{
		Output:       any(r.Output),
		Confidence:   r.Confidence,
		EvidenceRefs: r.EvidenceRefs,
		AnalysisTime: r.AnalysisTime,
	}, nil
}

func (cp *collapsedParallel) EstimatedConfidence() confidence.Value {
	return estimateOf(cp.inner)
}
