package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"librarian/internal/analysis"
)

func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// SqlStore implements Store with SQLite via the modernc driver, so the
// binary stays cgo-free.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path, creating the parent
// directory and applying the schema.
func Open(path string) (*SqlStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	return open(path)
}

// OpenMemory opens an in-memory SQLite DB for testing.
func OpenMemory() (*SqlStore, error) {
	return open(":memory:")
}

func open(dsn string) (*SqlStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// table-lock errors under concurrent pipeline runs.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SqlStore{db: db}, nil
}

func (s *SqlStore) Close() error { return s.db.Close() }

func (s *SqlStore) CreateRun(run *Run) (int64, error) {
	if run == nil {
		return 0, errors.New("run is nil")
	}
	if run.StartedAt == "" {
		run.StartedAt = nowUTC()
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	res, err := s.db.Exec(
		`INSERT INTO runs(pipeline, target_root, status, confidence_value, started_at)
		 VALUES(?, ?, ?, -1, ?)`,
		run.Pipeline, run.TargetRoot, run.Status, run.StartedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	run.ID = id
	return id, nil
}

func (s *SqlStore) FinishRun(run *Run) error {
	if run == nil || run.ID == 0 {
		return errors.New("run is not persisted")
	}
	if run.FinishedAt == "" {
		run.FinishedAt = nowUTC()
	}
	_, err := s.db.Exec(
		`UPDATE runs SET status=?, confidence_kind=?, confidence_value=?, confidence_json=?,
		        evidence_json=?, error=?, duration_ms=?, finished_at=?
		 WHERE id=?`,
		run.Status, run.ConfidenceKind, run.ConfidenceValue, run.ConfidenceJSON,
		run.EvidenceJSON, run.Error, run.DurationMS, run.FinishedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

func (s *SqlStore) GetRun(id int64) (*Run, error) {
	var r Run
	var kind, cjson, ejson, errMsg, finishedAt sql.NullString
	err := s.db.QueryRow(
		`SELECT id, pipeline, target_root, status, confidence_kind, confidence_value,
		        confidence_json, evidence_json, error, duration_ms, started_at, finished_at
		 FROM runs WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.Pipeline, &r.TargetRoot, &r.Status, &kind, &r.ConfidenceValue,
		&cjson, &ejson, &errMsg, &r.DurationMS, &r.StartedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	r.ConfidenceKind = nullStr(kind)
	r.ConfidenceJSON = nullStr(cjson)
	r.EvidenceJSON = nullStr(ejson)
	r.Error = nullStr(errMsg)
	r.FinishedAt = nullStr(finishedAt)
	return &r, nil
}

func (s *SqlStore) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, pipeline, target_root, status, confidence_kind, confidence_value,
		        confidence_json, evidence_json, error, duration_ms, started_at, finished_at
		 FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var list []*Run
	for rows.Next() {
		var r Run
		var kind, cjson, ejson, errMsg, finishedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.Pipeline, &r.TargetRoot, &r.Status, &kind, &r.ConfidenceValue,
			&cjson, &ejson, &errMsg, &r.DurationMS, &r.StartedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.ConfidenceKind = nullStr(kind)
		r.ConfidenceJSON = nullStr(cjson)
		r.EvidenceJSON = nullStr(ejson)
		r.Error = nullStr(errMsg)
		r.FinishedAt = nullStr(finishedAt)
		list = append(list, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return list, nil
}

func (s *SqlStore) AddFindings(runID int64, unit string, findings []analysis.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin findings tx: %w", err)
	}
	for _, f := range findings {
		if _, err := tx.Exec(
			`INSERT INTO findings(run_id, unit, rule, severity, file, line, message)
			 VALUES(?, ?, ?, ?, ?, ?, ?)`,
			runID, unit, f.Rule, f.Severity, f.File, f.Line, f.Message,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert finding: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit findings: %w", err)
	}
	return nil
}

func (s *SqlStore) ListFindingsByRun(runID int64) ([]*FindingRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, unit, rule, severity, file, line, message
		 FROM findings WHERE run_id = ? ORDER BY file, line, id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}
	defer rows.Close()
	var list []*FindingRecord
	for rows.Next() {
		var f FindingRecord
		if err := rows.Scan(&f.ID, &f.RunID, &f.Unit, &f.Rule, &f.Severity, &f.File, &f.Line, &f.Message); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		list = append(list, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}
	return list, nil
}

func (s *SqlStore) SaveRationale(entry *analysis.RationaleEntry) (int64, error) {
	if entry == nil {
		return 0, errors.New("rationale entry is nil")
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO rationale(symbol, decision, rationale, author, recorded_at)
		 VALUES(?, ?, ?, ?, ?)`,
		entry.Symbol, entry.Decision, entry.Rationale, entry.Author,
		entry.RecordedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert rationale: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (s *SqlStore) RationaleFor(ctx context.Context, symbol string) ([]analysis.RationaleEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, decision, rationale, author, recorded_at
		 FROM rationale WHERE symbol = ? ORDER BY id`,
		symbol,
	)
	if err != nil {
		return nil, fmt.Errorf("rationale for %q: %w", symbol, err)
	}
	defer rows.Close()
	return scanRationale(rows)
}

func (s *SqlStore) ListRationale() ([]analysis.RationaleEntry, error) {
	rows, err := s.db.Query(
		`SELECT symbol, decision, rationale, author, recorded_at FROM rationale ORDER BY symbol, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list rationale: %w", err)
	}
	defer rows.Close()
	return scanRationale(rows)
}

func scanRationale(rows *sql.Rows) ([]analysis.RationaleEntry, error) {
	var list []analysis.RationaleEntry
	for rows.Next() {
		var e analysis.RationaleEntry
		var rationale, author sql.NullString
		var recordedAt string
		if err := rows.Scan(&e.Symbol, &e.Decision, &rationale, &author, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan rationale: %w", err)
		}
		e.Rationale = nullStr(rationale)
		e.Author = nullStr(author)
		if ts, err := time.Parse(time.RFC3339, recordedAt); err == nil {
			e.RecordedAt = ts
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan rationale: %w", err)
	}
	return list, nil
}

func (s *SqlStore) AddCalibrationSample(sample *CalibrationSample) (int64, error) {
	if sample == nil {
		return 0, errors.New("sample is nil")
	}
	if sample.RecordedAt == "" {
		sample.RecordedAt = nowUTC()
	}
	outcome := 0
	if sample.Outcome {
		outcome = 1
	}
	res, err := s.db.Exec(
		`INSERT INTO calibration_samples(construction, predicted, outcome, recorded_at)
		 VALUES(?, ?, ?, ?)`,
		sample.Construction, sample.Predicted, outcome, sample.RecordedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert calibration sample: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (s *SqlStore) CalibrationRate(construction string) (float64, int, error) {
	var n, hits int
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(outcome), 0) FROM calibration_samples WHERE construction = ?`,
		construction,
	).Scan(&n, &hits)
	if err != nil {
		return 0, 0, fmt.Errorf("calibration rate: %w", err)
	}
	if n == 0 {
		return 0, 0, nil
	}
	return float64(hits) / float64(n), n, nil
}
