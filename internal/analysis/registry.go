package analysis

import (
	"context"
	"sort"

	"librarian/pkg/confidence"
	"librarian/pkg/construct"
)

// Units returns the built-in analyzers wrapped for DSL assembly. Pipeline
// files reference them by construction id (quality-scan, security-audit,
// arch-check, symbol-index, rationale-lookup). Each wrapped unit outputs a
// map carrying both the analyzer's report and the original target, so a
// chained analyzer can recover the target from the prior stage's result.
func Units(source RationaleSource, archRules []LayerRule) (construct.Registry, error) {
	reg := make(construct.Registry)
	units := []construct.Unit{
		forTarget(NewQualityScan(DefaultQualityConfig())),
		forTarget(NewSecurityAudit()),
		forTarget(NewArchCheck(archRules)),
		forTarget(NewSymbolIndex()),
		forQuery(NewRationaleLookup(source)),
	}
	for _, u := range units {
		if err := reg.Register(u); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// forTarget adapts a typed analyzer into the uniform DSL unit shape.
func forTarget[Out any](inner construct.Construction[Target, Out]) construct.Unit {
	return &targetUnit[Out]{inner: inner}
}

type targetUnit[Out any] struct {
	inner construct.Construction[Target, Out]
}

func (u *targetUnit[Out]) ID() string { return u.inner.ID() }

// Name doubles as the DSL reference, so it reports the construction id
// rather than the human-readable title.
func (u *targetUnit[Out]) Name() string { return u.inner.ID() }

func (u *targetUnit[Out]) Execute(ctx context.Context, input any) (*construct.Result[any], error) {
	target, err := coerceTarget(u.inner.ID(), input)
	if err != nil {
		return nil, err
	}
	r, err := u.inner.Execute(ctx, target)
	if err != nil {
		return nil, err
	}
	return &construct.Result[any]{
		Output:        map[string]any{"target": target, "report": r.Output},
		Confidence:    r.Confidence,
		EvidenceRefs:  r.EvidenceRefs,
		AnalysisTime:  r.AnalysisTime,
		Attempts:      r.Attempts,
		AttemptErrors: r.AttemptErrors,
	}, nil
}

func (u *targetUnit[Out]) EstimatedConfidence() confidence.Value {
	if e, ok := any(u.inner).(construct.Estimator); ok {
		return e.EstimatedConfidence()
	}
	return confidence.NewAbsent(confidence.ReasonUncalibrated)
}

// coerceTarget recovers the analysis target from whatever the previous
// stage produced: a bare Target, a prior stage's result, or the
// target-carrying map emitted by a wrapped analyzer.
func coerceTarget(id string, input any) (Target, error) {
	switch v := input.(type) {
	case Target:
		return v, nil
	case *Target:
		return *v, nil
	case *construct.Result[any]:
		return coerceTarget(id, v.Output)
	case map[string]any:
		if t, ok := v["target"].(Target); ok {
			return t, nil
		}
	}
	return Target{}, &construct.Error{ConstructionID: id, Msg: "input does not carry an analysis target"}
}

// forQuery adapts the rationale unit, which takes a symbol query rather
// than a target. Fed from a symbol-index stage it queries every indexed
// symbol.
func forQuery(inner construct.Construction[RationaleQuery, RationaleAnswer]) construct.Unit {
	return &queryUnit{inner: inner}
}

type queryUnit struct {
	inner construct.Construction[RationaleQuery, RationaleAnswer]
}

func (u *queryUnit) ID() string   { return u.inner.ID() }
func (u *queryUnit) Name() string { return u.inner.ID() }

func (u *queryUnit) Execute(ctx context.Context, input any) (*construct.Result[any], error) {
	query, err := coerceQuery(u.inner.ID(), input)
	if err != nil {
		return nil, err
	}
	r, err := u.inner.Execute(ctx, query)
	if err != nil {
		return nil, err
	}
	return &construct.Result[any]{
		Output:        map[string]any{"report": r.Output},
		Confidence:    r.Confidence,
		EvidenceRefs:  r.EvidenceRefs,
		AnalysisTime:  r.AnalysisTime,
		Attempts:      r.Attempts,
		AttemptErrors: r.AttemptErrors,
	}, nil
}

func coerceQuery(id string, input any) (RationaleQuery, error) {
	switch v := input.(type) {
	case RationaleQuery:
		return v, nil
	case *construct.Result[any]:
		return coerceQuery(id, v.Output)
	case SymbolTable:
		return queryFromTable(v), nil
	case map[string]any:
		if table, ok := v["report"].(SymbolTable); ok {
			return queryFromTable(table), nil
		}
	}
	return RationaleQuery{}, &construct.Error{ConstructionID: id, Msg: "input does not carry a rationale query"}
}

// queryFromTable queries each distinct symbol name once, in sorted order.
func queryFromTable(table SymbolTable) RationaleQuery {
	seen := make(map[string]bool)
	var symbols []string
	for _, s := range table.Symbols {
		if !seen[s.Name] {
			seen[s.Name] = true
			symbols = append(symbols, s.Name)
		}
	}
	sort.Strings(symbols)
	return RationaleQuery{Symbols: symbols}
}
