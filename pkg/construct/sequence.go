package construct

import (
	"context"
	"fmt"
	"time"

	"librarian/pkg/confidence"
)

// sequenceConstruction chains two constructions. The second receives the
// first's entire Result, not just the output field, so downstream steps
// can weigh upstream confidence and evidence.
type sequenceConstruction[In, Mid, Out any] struct {
	first  Construction[In, Mid]
	second Construction[*Result[Mid], Out]
}

// Sequence returns a construction that runs first, then feeds first's
// complete result into second. If first fails, second never executes and
// the error propagates unchanged. Combined confidence follows the
// sequential (weakest link) rule.
func Sequence[In, Mid, Out any](first Construction[In, Mid], second Construction[*Result[Mid], Out]) Construction[In, Out] {
	return &sequenceConstruction[In, Mid, Out]{first: first, second: second}
}

func (s *sequenceConstruction[In, Mid, Out]) ID() string {
	return fmt.Sprintf("sequence:%s>%s", s.first.ID(), s.second.ID())
}

func (s *sequenceConstruction[In, Mid, Out]) Name() string {
	return fmt.Sprintf("%s then %s", s.first.Name(), s.second.Name())
}

func (s *sequenceConstruction[In, Mid, Out]) Execute(ctx context.Context, input In) (*Result[Out], error) {
	start := time.Now()

	firstResult, err := s.first.Execute(ctx, input)
	if err != nil {
		return nil, err
	}

	secondResult, err := s.second.Execute(ctx, firstResult)
	if err != nil {
		return nil, err
	}

	evidence := make([]string, 0, len(firstResult.EvidenceRefs)+len(secondResult.EvidenceRefs)+2)
	evidence = append(evidence, "sequence:step:1:"+s.first.ID())
	evidence = append(evidence, firstResult.EvidenceRefs...)
	evidence = append(evidence, "sequence:step:2:"+s.second.ID())
	evidence = append(evidence, secondResult.EvidenceRefs...)

	return &Result[Out]{
		Output: secondResult.Output,
		Confidence: confidence.Sequential([]confidence.Value{
			firstResult.Confidence,
			secondResult.Confidence,
		}),
		EvidenceRefs: evidence,
		AnalysisTime: time.Since(start),
	}, nil
}

func (s *sequenceConstruction[In, Mid, Out]) EstimatedConfidence() confidence.Value {
	return confidence.Sequential([]confidence.Value{
		estimateOf(s.first),
		estimateOf(s.second),
	})
}
