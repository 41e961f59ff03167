package construct

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"librarian/pkg/confidence"
)

// ParallelMode selects how branch outcomes aggregate.
type ParallelMode string

const (
	// ModeAll requires every branch to succeed. Confidence is the product
	// of branch confidences, and a single branch failure aborts the whole
	// combinator (fail-fast join).
	ModeAll ParallelMode = "all"

	// ModeAny requires at least one branch to succeed. Confidence is the
	// noisy-or of the surviving branches; failed branches are excluded from
	// the product, and the combinator fails only when every branch fails.
	ModeAny ParallelMode = "any"
)

type parallelConstruction[In, Out any] struct {
	branches []Construction[In, Out]
	mode     ParallelMode
}

// Parallel returns a construction that executes all branches concurrently
// against the same input. Branch results are collected in definition order,
// never completion order.
func Parallel[In, Out any](branches []Construction[In, Out], mode ParallelMode) Construction[In, []Out] {
	return &parallelConstruction[In, Out]{branches: branches, mode: mode}
}

func (p *parallelConstruction[In, Out]) ID() string {
	ids := make([]string, len(p.branches))
	for i, b := range p.branches {
		ids[i] = b.ID()
	}
	return fmt.Sprintf("parallel-%s:[%s]", p.mode, strings.Join(ids, ","))
}

func (p *parallelConstruction[In, Out]) Name() string {
	return fmt.Sprintf("parallel-%s over %d branches", p.mode, len(p.branches))
}

func (p *parallelConstruction[In, Out]) Execute(ctx context.Context, input In) (*Result[[]Out], error) {
	start := time.Now()

	if len(p.branches) == 0 {
		return &Result[[]Out]{
			Output:       nil,
			Confidence:   confidence.NewAbsent(confidence.ReasonInsufficientData),
			EvidenceRefs: []string{fmt.Sprintf("parallel:%s:empty", p.mode)},
			AnalysisTime: time.Since(start),
		}, nil
	}

	results := make([]*Result[Out], len(p.branches))
	branchErrs := make([]error, len(p.branches))

	g, gctx := errgroup.WithContext(ctx)
	for i, branch := range p.branches {
		g.Go(func() error {
			r, err := branch.Execute(gctx, input)
			if err != nil {
				branchErrs[i] = err
				if p.mode == ModeAll {
					return err // fail-fast: cancels gctx for sibling branches
				}
				return nil
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		outputs  []Out
		values   []confidence.Value
		evidence []string
		failed   int
	)
	for i, r := range results {
		if r == nil {
			failed++
			evidence = append(evidence, fmt.Sprintf("parallel:branch:%d:failed:%s", i, p.branches[i].ID()))
			continue
		}
		outputs = append(outputs, r.Output)
		values = append(values, r.Confidence)
		evidence = append(evidence, fmt.Sprintf("parallel:branch:%d:%s", i, p.branches[i].ID()))
		evidence = append(evidence, r.EvidenceRefs...)
	}

	if failed == len(p.branches) {
		return nil, &Error{
			ConstructionID: p.ID(),
			Msg:            fmt.Sprintf("all %d branches failed", len(p.branches)),
			Err:            firstError(branchErrs),
		}
	}

	var combined confidence.Value
	if p.mode == ModeAll {
		combined = confidence.ParallelAll(values)
	} else {
		combined = confidence.ParallelAny(values)
	}

	return &Result[[]Out]{
		Output:       outputs,
		Confidence:   combined,
		EvidenceRefs: evidence,
		AnalysisTime: time.Since(start),
	}, nil
}

func (p *parallelConstruction[In, Out]) EstimatedConfidence() confidence.Value {
	values := make([]confidence.Value, len(p.branches))
	for i, b := range p.branches {
		values[i] = estimateOf(b)
	}
	if p.mode == ModeAll {
		return confidence.ParallelAll(values)
	}
	return confidence.ParallelAny(values)
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
