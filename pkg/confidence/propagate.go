package confidence

// Propagation rules for composed pipelines. Three combination modes exist:
//
//   - Sequential: weakest link, min over the chain.
//   - ParallelAll: every branch must be correct, so product (independence
//     assumed).
//   - ParallelAny: any branch being correct suffices, so noisy-or:
//     1 - product(1 - v).
//
// Absent inputs are excluded from the numeric combination rather than
// treated as zero; the combined value is then marked calibration-degraded.
// Collapsing an entire chain to zero confidence because one step was never
// measured would overstate what we know about the failure, not the success.

// Named formulas accepted by Derive. Unknown names fall back to FormulaMin,
// the conservative default.
const (
	FormulaMin     = "min"
	FormulaMax     = "max"
	FormulaAverage = "average"
	FormulaProduct = "product"
	FormulaNoisyOr = "noisy_or"
)

// CalibrationDegraded marks a derived value whose combination excluded one
// or more absent inputs.
const CalibrationDegraded = "degraded"

// Sequential combines confidence along a chain of dependent steps.
// An empty list yields Absent(insufficient_data). A single value passes
// through unchanged. Otherwise the result is a Derived min over the
// present-type inputs, degraded if any input was absent.
func Sequential(values []Value) Value {
	return combine(values, FormulaMin)
}

// ParallelAll combines confidence across branches that must all be correct.
func ParallelAll(values []Value) Value {
	return combine(values, FormulaProduct)
}

// ParallelAny combines confidence across branches where any one being
// correct suffices.
func ParallelAny(values []Value) Value {
	return combine(values, FormulaNoisyOr)
}

// Derive computes a named formula over the inputs and returns a Derived
// value recording formula and contributors. Unknown formulas are evaluated
// as min. Empty input yields Absent(insufficient_data).
func Derive(inputs []Input, formula string) Value {
	if len(inputs) == 0 {
		return NewAbsent(ReasonInsufficientData)
	}

	var present []float64
	degraded := false
	for _, in := range inputs {
		n, ok := Numeric(in.Confidence)
		if !ok {
			degraded = true
			continue
		}
		present = append(present, n)
	}
	if len(present) == 0 {
		return NewAbsent(ReasonInsufficientData)
	}

	d := NewDerived(apply(formula, present), canonicalFormula(formula), inputs)
	if degraded {
		d.CalibrationStatus = CalibrationDegraded
	}
	return d
}

// combine is the shared implementation behind the three propagation rules.
func combine(values []Value, formula string) Value {
	if len(values) == 0 {
		return NewAbsent(ReasonInsufficientData)
	}
	if len(values) == 1 {
		return values[0]
	}

	inputs := make([]Input, len(values))
	for i, v := range values {
		inputs[i] = Input{Name: string(v.Kind()), Confidence: v}
	}
	return Derive(inputs, formula)
}

func canonicalFormula(formula string) string {
	switch formula {
	case FormulaMin, FormulaMax, FormulaAverage, FormulaProduct, FormulaNoisyOr:
		return formula
	default:
		return FormulaMin
	}
}

func apply(formula string, values []float64) float64 {
	switch formula {
	case FormulaMax:
		out := 0.0
		for _, v := range values {
			if v > out {
				out = v
			}
		}
		return out
	case FormulaAverage:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	case FormulaProduct:
		out := 1.0
		for _, v := range values {
			out *= v
		}
		return out
	case FormulaNoisyOr:
		miss := 1.0
		for _, v := range values {
			miss *= 1 - v
		}
		return 1 - miss
	default: // FormulaMin and unknown names
		out := 1.0
		for _, v := range values {
			if v < out {
				out = v
			}
		}
		return out
	}
}
