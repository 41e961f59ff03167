// Package confidence defines typed uncertainty values and the propagation
// rules that combine them across composed analysis pipelines. A Value is a
// closed variant: exactly one of Deterministic, Measured, Bounded, Derived,
// or Absent. Consumers switch on Kind() and must handle every case.
package confidence

import (
	"fmt"
	"time"
)

// Kind discriminates the Value variants.
type Kind string

const (
	KindDeterministic Kind = "deterministic"
	KindMeasured      Kind = "measured"
	KindBounded       Kind = "bounded"
	KindDerived       Kind = "derived"
	KindAbsent        Kind = "absent"
)

// Absent reasons.
const (
	ReasonInsufficientData = "insufficient_data"
	ReasonUncalibrated     = "uncalibrated"
)

// Value is a typed uncertainty estimate. The concrete types below are the
// only implementations; the unexported method keeps the variant closed.
type Value interface {
	Kind() Kind
	isValue()
}

// Deterministic is a logically certain outcome: a rule either held or it
// did not, with a stated reason.
type Deterministic struct {
	Value  bool   `json:"value"`
	Reason string `json:"reason"`
}

func (Deterministic) Kind() Kind { return KindDeterministic }
func (Deterministic) isValue()   {}

// Measured is an empirically calibrated estimate backed by a sample.
type Measured struct {
	Value      float64    `json:"value"`
	SampleSize int        `json:"sample_size"`
	Accuracy   float64    `json:"accuracy"`
	Interval   [2]float64 `json:"confidence_interval"`
	MeasuredAt time.Time  `json:"measured_at"`
}

func (Measured) Kind() Kind { return KindMeasured }
func (Measured) isValue()   {}

// Bounded is an interval estimate with a stated justification.
type Bounded struct {
	Low      float64 `json:"low"`
	High     float64 `json:"high"`
	Basis    string  `json:"basis"`
	Citation string  `json:"citation,omitempty"`
}

func (Bounded) Kind() Kind { return KindBounded }
func (Bounded) isValue()   {}

// Input names one contributor to a Derived value.
type Input struct {
	Name       string `json:"name"`
	Confidence Value  `json:"confidence"`
}

// Derived is computed from other confidence values via a named formula.
type Derived struct {
	Value             float64 `json:"value"`
	Formula           string  `json:"formula"`
	Inputs            []Input `json:"inputs"`
	CalibrationStatus string  `json:"calibration_status,omitempty"`
}

func (Derived) Kind() Kind { return KindDerived }
func (Derived) isValue()   {}

// Absent carries no usable numeric value, only the reason why.
type Absent struct {
	Reason string `json:"reason"`
}

func (Absent) Kind() Kind { return KindAbsent }
func (Absent) isValue()   {}

// clamp forces v into [0,1]. Every numeric entering a Value passes through
// here at construction time.
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NewDeterministic returns a deterministic value with the given outcome.
func NewDeterministic(value bool, reason string) Deterministic {
	return Deterministic{Value: value, Reason: reason}
}

// NewMeasured returns a measured value with all numerics clamped to [0,1].
func NewMeasured(value float64, sampleSize int, accuracy float64, interval [2]float64, measuredAt time.Time) Measured {
	return Measured{
		Value:      clamp(value),
		SampleSize: sampleSize,
		Accuracy:   clamp(accuracy),
		Interval:   [2]float64{clamp(interval[0]), clamp(interval[1])},
		MeasuredAt: measuredAt,
	}
}

// NewBounded returns a bounded value. Low and high are clamped and swapped
// if given out of order.
func NewBounded(low, high float64, basis, citation string) Bounded {
	low, high = clamp(low), clamp(high)
	if low > high {
		low, high = high, low
	}
	return Bounded{Low: low, High: high, Basis: basis, Citation: citation}
}

// NewDerived returns a derived value with the computed numeric clamped.
func NewDerived(value float64, formula string, inputs []Input) Derived {
	return Derived{Value: clamp(value), Formula: formula, Inputs: inputs}
}

// NewAbsent returns an absent value carrying the given reason.
func NewAbsent(reason string) Absent {
	return Absent{Reason: reason}
}

// Numeric projects a Value onto [0,1] for propagation. Deterministic maps
// true to 1 and false to 0. Bounded contributes its low bound, consistent
// with the conservative min semantics of sequential composition. Absent has
// no projection and reports ok=false.
func Numeric(v Value) (float64, bool) {
	switch c := v.(type) {
	case Deterministic:
		if c.Value {
			return 1, true
		}
		return 0, true
	case Measured:
		return c.Value, true
	case Bounded:
		return c.Low, true
	case Derived:
		return c.Value, true
	case Absent:
		return 0, false
	default:
		return 0, false
	}
}

// Describe renders a short human-readable form for logs and reports.
func Describe(v Value) string {
	switch c := v.(type) {
	case Deterministic:
		return fmt.Sprintf("deterministic(%t: %s)", c.Value, c.Reason)
	case Measured:
		return fmt.Sprintf("measured(%.3f, n=%d)", c.Value, c.SampleSize)
	case Bounded:
		return fmt.Sprintf("bounded[%.3f, %.3f]", c.Low, c.High)
	case Derived:
		return fmt.Sprintf("derived(%.3f via %s)", c.Value, c.Formula)
	case Absent:
		return fmt.Sprintf("absent(%s)", c.Reason)
	default:
		return "unknown"
	}
}
