package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"librarian/internal/analysis"
)

// MemStore is an in-memory Store for tests and ephemeral runs. All
// methods are safe for concurrent use.
type MemStore struct {
	mu         sync.Mutex
	runs       map[int64]*Run
	findings   map[int64][]*FindingRecord
	rationale  []analysis.RationaleEntry
	samples    []*CalibrationSample
	nextRunID  int64
	nextFindID int64
	nextMiscID int64
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		runs:     make(map[int64]*Run),
		findings: make(map[int64][]*FindingRecord),
	}
}

func (m *MemStore) Close() error { return nil }

func (m *MemStore) CreateRun(run *Run) (int64, error) {
	if run == nil {
		return 0, errors.New("run is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRunID++
	run.ID = m.nextRunID
	if run.StartedAt == "" {
		run.StartedAt = nowUTC()
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	run.ConfidenceValue = -1
	stored := *run
	m.runs[run.ID] = &stored
	return run.ID, nil
}

func (m *MemStore) FinishRun(run *Run) error {
	if run == nil || run.ID == 0 {
		return errors.New("run is not persisted")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		return errors.New("run not found")
	}
	if run.FinishedAt == "" {
		run.FinishedAt = nowUTC()
	}
	stored := *run
	m.runs[run.ID] = &stored
	return nil
}

func (m *MemStore) GetRun(id int64) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	out := *run
	return &out, nil
}

func (m *MemStore) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.runs))
	for id := range m.runs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	var list []*Run
	for _, id := range ids {
		if len(list) == limit {
			break
		}
		out := *m.runs[id]
		list = append(list, &out)
	}
	return list, nil
}

func (m *MemStore) AddFindings(runID int64, unit string, findings []analysis.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range findings {
		m.nextFindID++
		m.findings[runID] = append(m.findings[runID], &FindingRecord{
			ID:       m.nextFindID,
			RunID:    runID,
			Unit:     unit,
			Rule:     f.Rule,
			Severity: f.Severity,
			File:     f.File,
			Line:     f.Line,
			Message:  f.Message,
		})
	}
	return nil
}

func (m *MemStore) ListFindingsByRun(runID int64) ([]*FindingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.findings[runID]
	list := make([]*FindingRecord, len(records))
	for i, r := range records {
		out := *r
		list[i] = &out
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].File != list[j].File {
			return list[i].File < list[j].File
		}
		if list[i].Line != list[j].Line {
			return list[i].Line < list[j].Line
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (m *MemStore) SaveRationale(entry *analysis.RationaleEntry) (int64, error) {
	if entry == nil {
		return 0, errors.New("rationale entry is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	m.nextMiscID++
	m.rationale = append(m.rationale, *entry)
	return m.nextMiscID, nil
}

func (m *MemStore) RationaleFor(ctx context.Context, symbol string) ([]analysis.RationaleEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []analysis.RationaleEntry
	for _, e := range m.rationale {
		if e.Symbol == symbol {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemStore) ListRationale() ([]analysis.RationaleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]analysis.RationaleEntry, len(m.rationale))
	copy(out, m.rationale)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *MemStore) AddCalibrationSample(s *CalibrationSample) (int64, error) {
	if s == nil {
		return 0, errors.New("sample is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.RecordedAt == "" {
		s.RecordedAt = nowUTC()
	}
	m.nextMiscID++
	s.ID = m.nextMiscID
	stored := *s
	m.samples = append(m.samples, &stored)
	return s.ID, nil
}

func (m *MemStore) CalibrationRate(construction string) (float64, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n, hits int
	for _, s := range m.samples {
		if s.Construction != construction {
			continue
		}
		n++
		if s.Outcome {
			hits++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return float64(hits) / float64(n), n, nil
}
