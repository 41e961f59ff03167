// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output, markdown reports, logs, and docs.
// Keep raw codes for JSON fields, map keys, and equality comparisons.
package display

import (
	"fmt"
	"strings"

	"librarian/pkg/confidence"
)

// --- Confidence Kinds ---

var kinds = map[string]string{
	"deterministic": "Deterministic",
	"measured":      "Measured",
	"bounded":       "Bounded Estimate",
	"derived":       "Derived",
	"absent":        "No Confidence Data",
}

// ConfidenceKind returns the human-readable name for a confidence kind
// code. Unknown codes are returned as-is.
func ConfidenceKind(code string) string {
	if name, ok := kinds[code]; ok {
		return name
	}
	return code
}

// Confidence renders a confidence value for tables and reports:
// "87.0% (Measured, n=412)", "Pass (Deterministic)", "No Confidence Data".
func Confidence(v confidence.Value) string {
	switch c := v.(type) {
	case confidence.Deterministic:
		verdict := "Fail"
		if c.Value {
			verdict = "Pass"
		}
		return verdict + " (Deterministic)"
	case confidence.Measured:
		return fmt.Sprintf("%.1f%% (Measured, n=%d)", c.Value*100, c.SampleSize)
	case confidence.Bounded:
		return fmt.Sprintf("%.1f%%..%.1f%% (Bounded)", c.Low*100, c.High*100)
	case confidence.Derived:
		s := fmt.Sprintf("%.1f%% (Derived via %s)", c.Value*100, Formula(c.Formula))
		if c.CalibrationStatus == confidence.CalibrationDegraded {
			s += " [degraded]"
		}
		return s
	case confidence.Absent:
		return "No Confidence Data"
	default:
		return "No Confidence Data"
	}
}

// --- Propagation Formulas ---

var formulas = map[string]string{
	"min":      "Weakest Link",
	"max":      "Strongest Link",
	"average":  "Average",
	"product":  "Joint Probability",
	"noisy_or": "Noisy-Or",
}

// Formula returns the human-readable name for a propagation formula.
// "noisy_or" -> "Noisy-Or".
func Formula(code string) string {
	if name, ok := formulas[code]; ok {
		return name
	}
	return code
}

// FormulaWithCode returns "Weakest Link (min)" format.
func FormulaWithCode(code string) string {
	if name, ok := formulas[code]; ok {
		return name + " (" + code + ")"
	}
	return code
}

// --- Finding Severities ---

var severities = map[string]string{
	"info": "Informational",
	"warn": "Warning",
	"high": "High Severity",
}

// Severity returns the human-readable name for a severity code.
// "warn" -> "Warning".
func Severity(code string) string {
	if name, ok := severities[code]; ok {
		return name
	}
	return code
}

// --- Analysis Units ---

var units = map[string]string{
	"quality-scan":     "Code Quality Scan",
	"security-audit":   "Security Audit",
	"arch-check":       "Architecture Check",
	"symbol-index":     "Symbol Index",
	"rationale-lookup": "Rationale Lookup",
}

// Unit returns the human-readable name for an analysis unit id.
// "quality-scan" -> "Code Quality Scan".
func Unit(id string) string {
	if name, ok := units[id]; ok {
		return name
	}
	return id
}

// UnitWithCode returns "Code Quality Scan (quality-scan)" format.
func UnitWithCode(id string) string {
	if name, ok := units[id]; ok {
		return name + " (" + id + ")"
	}
	return id
}

// --- Run Statuses ---

var statuses = map[string]string{
	"running":   "Running",
	"completed": "Completed",
	"failed":    "Failed",
}

// RunStatus returns the human-readable name for a run status.
func RunStatus(code string) string {
	if name, ok := statuses[code]; ok {
		return name
	}
	return code
}

// --- Pipeline Paths ---

// PipelinePath converts a slice of unit ids to a human-readable path.
// ["symbol-index", "rationale-lookup"] -> "Symbol Index -> Rationale Lookup"
func PipelinePath(ids []string) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = Unit(id)
	}
	return strings.Join(names, " → ")
}
