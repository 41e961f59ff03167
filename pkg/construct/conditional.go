package construct

import (
	"context"
	"fmt"
	"time"

	"librarian/pkg/confidence"
)

// Predicate routes a conditional construction. It may itself block on I/O,
// so it receives the execution context.
type Predicate[In any] func(ctx context.Context, input In) (bool, error)

type conditionalConstruction[In, Out any] struct {
	predicate Predicate[In]
	ifTrue    Construction[In, Out]
	ifFalse   Construction[In, Out]
}

// Conditional returns a construction that evaluates the predicate exactly
// once and then executes exactly one branch. The routing decision itself is
// treated as certain: the result carries the chosen branch's confidence
// directly.
func Conditional[In, Out any](predicate Predicate[In], ifTrue, ifFalse Construction[In, Out]) Construction[In, Out] {
	return &conditionalConstruction[In, Out]{predicate: predicate, ifTrue: ifTrue, ifFalse: ifFalse}
}

func (c *conditionalConstruction[In, Out]) ID() string {
	return fmt.Sprintf("conditional:%s|%s", c.ifTrue.ID(), c.ifFalse.ID())
}

func (c *conditionalConstruction[In, Out]) Name() string {
	return fmt.Sprintf("if-then %s else %s", c.ifTrue.Name(), c.ifFalse.Name())
}

func (c *conditionalConstruction[In, Out]) Execute(ctx context.Context, input In) (*Result[Out], error) {
	start := time.Now()

	taken, err := c.predicate(ctx, input)
	if err != nil {
		return nil, &Error{ConstructionID: c.ID(), Msg: "predicate failed", Err: err}
	}

	branch := c.ifFalse
	label := "false"
	if taken {
		branch = c.ifTrue
		label = "true"
	}

	result, err := branch.Execute(ctx, input)
	if err != nil {
		return nil, err
	}

	out := result.Clone()
	out.EvidenceRefs = append([]string{"conditional:branch:" + label + ":" + branch.ID()}, out.EvidenceRefs...)
	out.AnalysisTime = time.Since(start)
	return out, nil
}

// EstimatedConfidence reports an optimistic upper bound before the routing
// decision is known: the max of the two branch estimates.
func (c *conditionalConstruction[In, Out]) EstimatedConfidence() confidence.Value {
	return confidence.Derive([]confidence.Input{
		{Name: "if_true", Confidence: estimateOf(c.ifTrue)},
		{Name: "if_false", Confidence: estimateOf(c.ifFalse)},
	}, confidence.FormulaMax)
}
