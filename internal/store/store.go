// Package store persists analysis runs, findings, recorded design
// rationale, and calibration samples. Domain and CLI code use only the
// Store interface; the implementation is SQLite or in-memory.
package store

import (
	"context"

	"librarian/internal/analysis"
)

// DefaultDBPath is the default relative path for the SQLite DB
// (per-workspace). Open() creates the parent dir.
const DefaultDBPath = ".librarian/librarian.db"

// Run is one recorded pipeline execution.
type Run struct {
	ID              int64   `json:"id"`
	Pipeline        string  `json:"pipeline"`
	TargetRoot      string  `json:"target_root"`
	Status          string  `json:"status"` // "running", "completed", "failed"
	ConfidenceKind  string  `json:"confidence_kind,omitempty"`
	ConfidenceValue float64 `json:"confidence_value"` // -1 when absent
	ConfidenceJSON  string  `json:"confidence_json,omitempty"`
	EvidenceJSON    string  `json:"evidence_json,omitempty"`
	Error           string  `json:"error,omitempty"`
	DurationMS      int64   `json:"duration_ms"`
	StartedAt       string  `json:"started_at"`
	FinishedAt      string  `json:"finished_at,omitempty"`
}

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// FindingRecord is a persisted analyzer finding, keyed to its run.
type FindingRecord struct {
	ID       int64  `json:"id"`
	RunID    int64  `json:"run_id"`
	Unit     string `json:"unit"`
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
}

// CalibrationSample records a predicted confidence against the observed
// outcome, feeding future measured estimates.
type CalibrationSample struct {
	ID           int64   `json:"id"`
	Construction string  `json:"construction"`
	Predicted    float64 `json:"predicted"`
	Outcome      bool    `json:"outcome"`
	RecordedAt   string  `json:"recorded_at"`
}

// Store is the persistence facade. It also serves recorded rationale to
// the analysis layer via RationaleFor.
type Store interface {
	// Run operations
	CreateRun(run *Run) (int64, error)
	FinishRun(run *Run) error
	GetRun(id int64) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	// Finding operations
	AddFindings(runID int64, unit string, findings []analysis.Finding) error
	ListFindingsByRun(runID int64) ([]*FindingRecord, error)

	// Rationale operations
	SaveRationale(entry *analysis.RationaleEntry) (int64, error)
	RationaleFor(ctx context.Context, symbol string) ([]analysis.RationaleEntry, error)
	ListRationale() ([]analysis.RationaleEntry, error)

	// Calibration operations
	AddCalibrationSample(s *CalibrationSample) (int64, error)
	// CalibrationRate returns the observed hit rate and sample count for a
	// construction. A zero count means no samples are recorded.
	CalibrationRate(construction string) (rate float64, n int, err error)

	Close() error
}

// NewFindingRecord converts an analyzer finding for persistence.
func NewFindingRecord(runID int64, unit string, f analysis.Finding) *FindingRecord {
	return &FindingRecord{
		RunID:    runID,
		Unit:     unit,
		Rule:     f.Rule,
		Severity: f.Severity,
		File:     f.File,
		Line:     f.Line,
		Message:  f.Message,
	}
}
