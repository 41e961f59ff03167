package confidence

import (
	"math"
	"testing"
	"time"
)

func measured(v float64) Value {
	return NewMeasured(v, 100, 0.9, [2]float64{v - 0.05, v + 0.05}, time.Now())
}

func numericOf(t *testing.T, v Value) float64 {
	t.Helper()
	n, ok := Numeric(v)
	if !ok {
		t.Fatalf("expected numeric value, got %s", Describe(v))
	}
	return n
}

func TestSequentialEmpty(t *testing.T) {
	v := Sequential(nil)
	a, ok := v.(Absent)
	if !ok {
		t.Fatalf("Sequential(nil) = %s, want absent", Describe(v))
	}
	if a.Reason != ReasonInsufficientData {
		t.Errorf("reason = %q, want %q", a.Reason, ReasonInsufficientData)
	}
}

func TestSequentialSingleton(t *testing.T) {
	in := measured(0.7)
	out := Sequential([]Value{in})
	if out != in {
		t.Errorf("Sequential([a]) = %s, want the value unchanged", Describe(out))
	}
}

func TestSequentialMin(t *testing.T) {
	cases := []struct {
		name   string
		values []Value
		want   float64
	}{
		{"pair", []Value{measured(0.9), measured(0.6)}, 0.6},
		{"triple", []Value{measured(0.5), measured(0.8), measured(0.7)}, 0.5},
		{"deterministic true is one", []Value{NewDeterministic(true, "rule held"), measured(0.4)}, 0.4},
		{"deterministic false is zero", []Value{NewDeterministic(false, "rule broken"), measured(0.9)}, 0},
		{"bounded contributes low", []Value{NewBounded(0.3, 0.9, "expert judgment", ""), measured(0.8)}, 0.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := numericOf(t, Sequential(tc.values))
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Sequential = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSequentialExcludesAbsent(t *testing.T) {
	v := Sequential([]Value{measured(0.9), NewAbsent(ReasonUncalibrated), measured(0.6)})
	d, ok := v.(Derived)
	if !ok {
		t.Fatalf("got %s, want derived", Describe(v))
	}
	if d.CalibrationStatus != CalibrationDegraded {
		t.Errorf("calibration status = %q, want %q", d.CalibrationStatus, CalibrationDegraded)
	}
	// Absent is excluded from the min, not treated as zero.
	if math.Abs(d.Value-0.6) > 1e-9 {
		t.Errorf("value = %v, want 0.6", d.Value)
	}
}

func TestSequentialAllAbsent(t *testing.T) {
	v := Sequential([]Value{NewAbsent(ReasonUncalibrated), NewAbsent(ReasonInsufficientData)})
	if _, ok := v.(Absent); !ok {
		t.Errorf("got %s, want absent", Describe(v))
	}
}

func TestParallelAllProduct(t *testing.T) {
	v := ParallelAll([]Value{measured(0.9), measured(0.8), measured(0.5)})
	got := numericOf(t, v)
	if math.Abs(got-0.36) > 1e-9 {
		t.Errorf("ParallelAll = %v, want 0.36", got)
	}
	if d, ok := v.(Derived); !ok || d.Formula != FormulaProduct {
		t.Errorf("got %s, want derived via product", Describe(v))
	}
}

func TestParallelAnyNoisyOr(t *testing.T) {
	v := ParallelAny([]Value{measured(0.9), measured(0.8), measured(0.5)})
	got := numericOf(t, v)
	want := 1 - 0.1*0.2*0.5 // 0.99
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("ParallelAny = %v, want %v", got, want)
	}
}

func TestDeriveFormulas(t *testing.T) {
	inputs := []Input{
		{Name: "a", Confidence: measured(0.4)},
		{Name: "b", Confidence: measured(0.8)},
	}
	cases := []struct {
		formula     string
		want        float64
		wantFormula string
	}{
		{FormulaMin, 0.4, FormulaMin},
		{FormulaMax, 0.8, FormulaMax},
		{FormulaAverage, 0.6, FormulaAverage},
		{FormulaProduct, 0.32, FormulaProduct},
		{FormulaNoisyOr, 1 - 0.6*0.2, FormulaNoisyOr},
		{"geometric_mean", 0.4, FormulaMin}, // unknown names fall back to min
	}
	for _, tc := range cases {
		t.Run(tc.formula, func(t *testing.T) {
			v := Derive(inputs, tc.formula)
			d, ok := v.(Derived)
			if !ok {
				t.Fatalf("got %s, want derived", Describe(v))
			}
			if math.Abs(d.Value-tc.want) > 1e-9 {
				t.Errorf("value = %v, want %v", d.Value, tc.want)
			}
			if d.Formula != tc.wantFormula {
				t.Errorf("formula = %q, want %q", d.Formula, tc.wantFormula)
			}
		})
	}
}

func TestDeriveEmpty(t *testing.T) {
	if _, ok := Derive(nil, FormulaMin).(Absent); !ok {
		t.Error("Derive(nil) should be absent")
	}
}

func TestClampAtConstruction(t *testing.T) {
	m := NewMeasured(1.7, 10, -0.2, [2]float64{-1, 2}, time.Now())
	if m.Value != 1 || m.Accuracy != 0 || m.Interval[0] != 0 || m.Interval[1] != 1 {
		t.Errorf("NewMeasured did not clamp: %+v", m)
	}
	b := NewBounded(0.9, 0.2, "swapped", "")
	if b.Low != 0.2 || b.High != 0.9 {
		t.Errorf("NewBounded did not normalize interval: %+v", b)
	}
	d := NewDerived(-3, FormulaMin, nil)
	if d.Value != 0 {
		t.Errorf("NewDerived did not clamp: %+v", d)
	}
}
