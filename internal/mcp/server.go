// Package mcp exposes the analysis engine over the Model Context
// Protocol: starting pipeline runs, fetching reports and findings,
// listing pipelines, and recording design rationale.
package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"librarian/internal/analysis"
	"librarian/internal/display"
	"librarian/internal/logging"
	"librarian/internal/orchestrate"
)

// DefaultSessionTTL cancels runs whose client went away.
var DefaultSessionTTL = 5 * time.Minute

// Server wraps the MCP SDK server and manages analysis sessions.
type Server struct {
	MCPServer *sdkmcp.Server
	Orch      *orchestrate.Orchestrator

	mu      sync.Mutex
	session *Session
}

// NewServer creates an MCP server over an orchestrator.
func NewServer(orch *orchestrate.Orchestrator) *Server {
	s := &Server{Orch: orch}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "librarian", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_analysis",
		Description: "Start an analysis pipeline against a directory. Returns a session ID immediately; poll get_report for the result.",
	}, s.handleRunAnalysis)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_report",
		Description: "Get the report for an analysis session. Blocks until the run completes.",
	}, s.handleGetReport)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_pipelines",
		Description: "List the available analysis pipelines with their step structure.",
	}, s.handleListPipelines)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_runs",
		Description: "List recorded analysis runs, newest first.",
	}, s.handleListRuns)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "record_rationale",
		Description: "Record a design decision for a symbol so rationale-lookup can serve it later.",
	}, s.handleRecordRationale)
}

// --- Tool input/output types ---

type runAnalysisInput struct {
	Pipeline string `json:"pipeline" jsonschema:"pipeline name from list_pipelines"`
	Path     string `json:"path" jsonschema:"directory to analyze"`
	Force    bool   `json:"force,omitempty" jsonschema:"cancel any existing session and start fresh"`
}

type runAnalysisOutput struct {
	SessionID string `json:"session_id"`
	Pipeline  string `json:"pipeline"`
	Status    string `json:"status"`
}

type getReportInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID from run_analysis"`
}

type findingOut struct {
	Unit     string `json:"unit"`
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
}

type getReportOutput struct {
	Status     string       `json:"status"`
	RunID      int64        `json:"run_id,omitempty"`
	Confidence string       `json:"confidence,omitempty"`
	Kind       string       `json:"confidence_kind,omitempty"`
	Value      float64      `json:"confidence_value,omitempty"`
	Evidence   []string     `json:"evidence,omitempty"`
	Findings   []findingOut `json:"findings,omitempty"`
	DurationMS int64        `json:"duration_ms,omitempty"`
	Error      string       `json:"error,omitempty"`
}

type listPipelinesInput struct{}

type pipelineOut struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Steps       int    `json:"steps"`
}

type listPipelinesOutput struct {
	Pipelines []pipelineOut `json:"pipelines"`
}

type listRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"max rows to return (default 20)"`
}

type runOut struct {
	ID         int64   `json:"id"`
	Pipeline   string  `json:"pipeline"`
	TargetRoot string  `json:"target_root"`
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence_value"`
	StartedAt  string  `json:"started_at"`
}

type listRunsOutput struct {
	Runs []runOut `json:"runs"`
}

type recordRationaleInput struct {
	Symbol    string `json:"symbol" jsonschema:"symbol name the decision applies to"`
	Decision  string `json:"decision" jsonschema:"what was decided"`
	Rationale string `json:"rationale,omitempty" jsonschema:"why it was decided"`
	Author    string `json:"author,omitempty" jsonschema:"who decided"`
}

type recordRationaleOutput struct {
	OK string `json:"ok"`
}

// --- Tool handlers ---

func (s *Server) handleRunAnalysis(ctx context.Context, _ *sdkmcp.CallToolRequest, input runAnalysisInput) (*sdkmcp.CallToolResult, runAnalysisOutput, error) {
	logger := logging.New("mcp")
	if input.Pipeline == "" || input.Path == "" {
		return nil, runAnalysisOutput{}, fmt.Errorf("pipeline and path are required")
	}
	if _, ok := s.Orch.Pipelines[input.Pipeline]; !ok {
		return nil, runAnalysisOutput{}, fmt.Errorf("unknown pipeline %q (see list_pipelines)", input.Pipeline)
	}

	s.mu.Lock()
	if s.session != nil {
		select {
		case <-s.session.Done():
			// completed sessions are replaceable
		default:
			if !input.Force {
				s.mu.Unlock()
				return nil, runAnalysisOutput{}, fmt.Errorf("an analysis session is already running (id=%s)", s.session.ID)
			}
			logger.Warn("force-replacing active session", "old_id", s.session.ID)
			s.session.Cancel()
		}
	}
	sess := NewSession(s.Orch, input.Pipeline, input.Path)
	sess.SetTTL(DefaultSessionTTL)
	s.session = sess
	s.mu.Unlock()

	logger.Info("analysis started", "session_id", sess.ID, "pipeline", input.Pipeline, "path", input.Path)
	return nil, runAnalysisOutput{
		SessionID: sess.ID,
		Pipeline:  input.Pipeline,
		Status:    string(StateRunning),
	}, nil
}

func (s *Server) handleGetReport(ctx context.Context, _ *sdkmcp.CallToolRequest, input getReportInput) (*sdkmcp.CallToolResult, getReportOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, getReportOutput{}, err
	}
	sess.Touch()

	select {
	case <-sess.Done():
	case <-ctx.Done():
		return nil, getReportOutput{}, ctx.Err()
	}

	outcome, runErr := sess.Outcome()
	if runErr != nil {
		out := getReportOutput{Status: string(StateError), Error: runErr.Error()}
		if outcome != nil && outcome.Run != nil {
			out.RunID = outcome.Run.ID
			out.DurationMS = outcome.Run.DurationMS
		}
		return nil, out, nil
	}

	run := outcome.Run
	out := getReportOutput{
		Status:     string(StateDone),
		RunID:      run.ID,
		Kind:       run.ConfidenceKind,
		Value:      run.ConfidenceValue,
		DurationMS: run.DurationMS,
	}
	if outcome.Result != nil {
		out.Confidence = display.Confidence(outcome.Result.Confidence)
		out.Evidence = outcome.Result.EvidenceRefs
	}
	for _, f := range outcome.Findings {
		out.Findings = append(out.Findings, findingOut{
			Unit:     f.Unit,
			Rule:     f.Rule,
			Severity: f.Severity,
			File:     f.File,
			Line:     f.Line,
			Message:  f.Message,
		})
	}
	return nil, out, nil
}

func (s *Server) handleListPipelines(ctx context.Context, _ *sdkmcp.CallToolRequest, _ listPipelinesInput) (*sdkmcp.CallToolResult, listPipelinesOutput, error) {
	var out listPipelinesOutput
	for _, name := range s.Orch.PipelineNames() {
		def := s.Orch.Pipelines[name]
		out.Pipelines = append(out.Pipelines, pipelineOut{
			Name:        def.Pipeline,
			Description: def.Description,
			Steps:       len(def.Steps),
		})
	}
	return nil, out, nil
}

func (s *Server) handleListRuns(ctx context.Context, _ *sdkmcp.CallToolRequest, input listRunsInput) (*sdkmcp.CallToolResult, listRunsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.Orch.Store.ListRuns(limit)
	if err != nil {
		return nil, listRunsOutput{}, fmt.Errorf("list_runs: %w", err)
	}
	var out listRunsOutput
	for _, r := range runs {
		out.Runs = append(out.Runs, runOut{
			ID:         r.ID,
			Pipeline:   r.Pipeline,
			TargetRoot: r.TargetRoot,
			Status:     r.Status,
			Confidence: r.ConfidenceValue,
			StartedAt:  r.StartedAt,
		})
	}
	return nil, out, nil
}

func (s *Server) handleRecordRationale(ctx context.Context, _ *sdkmcp.CallToolRequest, input recordRationaleInput) (*sdkmcp.CallToolResult, recordRationaleOutput, error) {
	if input.Symbol == "" || input.Decision == "" {
		return nil, recordRationaleOutput{}, fmt.Errorf("symbol and decision are required")
	}
	entry := &analysis.RationaleEntry{
		Symbol:    input.Symbol,
		Decision:  input.Decision,
		Rationale: input.Rationale,
		Author:    input.Author,
	}
	if _, err := s.Orch.Store.SaveRationale(entry); err != nil {
		return nil, recordRationaleOutput{}, fmt.Errorf("record_rationale: %w", err)
	}
	return nil, recordRationaleOutput{OK: fmt.Sprintf("rationale recorded for %s", input.Symbol)}, nil
}

// SessionID returns the current session's ID, or empty string if none.
func (s *Server) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return s.session.ID
	}
	return ""
}

// Shutdown cancels any active session.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Cancel()
		s.session = nil
	}
}

func (s *Server) getSession(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, fmt.Errorf("no active session (call run_analysis first)")
	}
	if s.session.ID != id {
		return nil, fmt.Errorf("session_id mismatch: have %s, got %s", s.session.ID, id)
	}
	return s.session, nil
}
