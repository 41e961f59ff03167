package construct

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"librarian/pkg/confidence"
)

// CompilePredicate compiles a routing expression into a Predicate. The
// expression is evaluated against an environment built from the stage
// input:
//
//	output     the prior stage's payload (when the input is a *Result)
//	confidence the prior stage's numeric confidence, -1 when absent
//	evidence   the prior stage's evidence refs
//	input      the raw input for non-result inputs
//	config     the pipeline's vars block
//
// Expressions must evaluate to a boolean.
func CompilePredicate(source string, vars map[string]any) (Predicate[any], error) {
	program, err := expr.Compile(source, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile predicate %q: %w", source, err)
	}
	return func(ctx context.Context, input any) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		out, err := vm.Run(program, predicateEnv(input, vars))
		if err != nil {
			return false, fmt.Errorf("evaluate predicate %q: %w", source, err)
		}
		taken, ok := out.(bool)
		if !ok {
			return false, fmt.Errorf("predicate %q returned %T, want bool", source, out)
		}
		return taken, nil
	}, nil
}

func predicateEnv(input any, vars map[string]any) map[string]any {
	env := map[string]any{
		"config": vars,
		"input":  input,
	}
	if r, ok := input.(*Result[any]); ok && r != nil {
		env["output"] = r.Output
		env["evidence"] = r.EvidenceRefs
		if n, present := confidence.Numeric(r.Confidence); present {
			env["confidence"] = n
		} else {
			env["confidence"] = -1.0
		}
	}
	return env
}
