// Package orchestrate runs named analysis pipelines end to end: load the
// target, build the composed construction, execute it, and persist the
// run, its findings, and a calibration sample. The CLI and the MCP server
// both drive this package rather than the engine directly.
package orchestrate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"librarian/internal/analysis"
	"librarian/internal/logging"
	"librarian/internal/store"
	"librarian/pkg/confidence"
	"librarian/pkg/construct"
)

// Orchestrator binds a unit registry, pipeline definitions, and the
// persistence layer.
type Orchestrator struct {
	Store     store.Store
	Registry  construct.Registry
	Pipelines map[string]*construct.PipelineDef
	Tracer    construct.Tracer // may be nil when no step traces
}

// New builds an orchestrator over the built-in units and pipelines.
func New(st store.Store, archRules []analysis.LayerRule) (*Orchestrator, error) {
	reg, err := analysis.Units(st, archRules)
	if err != nil {
		return nil, fmt.Errorf("build unit registry: %w", err)
	}
	defs, err := BuiltinPipelines()
	if err != nil {
		return nil, fmt.Errorf("load builtin pipelines: %w", err)
	}
	return &Orchestrator{Store: st, Registry: reg, Pipelines: defs}, nil
}

// AddPipeline registers an extra pipeline definition, validated against
// the registry. Redefining a built-in name is an error.
func (o *Orchestrator) AddPipeline(def *construct.PipelineDef) error {
	if _, exists := o.Pipelines[def.Pipeline]; exists {
		return fmt.Errorf("pipeline %q already defined", def.Pipeline)
	}
	if err := def.Validate(o.Registry); err != nil {
		return fmt.Errorf("pipeline %q: %w", def.Pipeline, err)
	}
	o.Pipelines[def.Pipeline] = def
	return nil
}

// PipelineNames returns the known pipeline names, sorted.
func (o *Orchestrator) PipelineNames() []string {
	names := make([]string, 0, len(o.Pipelines))
	for name := range o.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunOutcome is what a completed (or failed) pipeline run produced.
type RunOutcome struct {
	Run      *store.Run
	Result   *construct.Result[any]
	Findings []*store.FindingRecord
}

// Run executes the named pipeline against the target rooted at root. The
// run row is created before execution and finished afterward, so an
// aborted process still leaves a visible record.
func (o *Orchestrator) Run(ctx context.Context, pipeline, root string) (*RunOutcome, error) {
	logger := logging.New("orchestrate")

	def, ok := o.Pipelines[pipeline]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline %q (have %v)", pipeline, o.PipelineNames())
	}
	composed, err := def.Build(o.Registry, o.Tracer)
	if err != nil {
		return nil, fmt.Errorf("build pipeline %q: %w", pipeline, err)
	}
	if o.Tracer != nil {
		composed = construct.WithTracing(composed, o.Tracer)
	}

	target, err := analysis.ReadTarget(root)
	if err != nil {
		return nil, err
	}
	logger.Info("target loaded", "root", root, "files", len(target.Files))

	run := &store.Run{Pipeline: pipeline, TargetRoot: root}
	if _, err := o.Store.CreateRun(run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	started := time.Now()
	result, execErr := composed.Execute(ctx, target)
	run.DurationMS = time.Since(started).Milliseconds()

	if execErr != nil {
		run.Status = store.RunFailed
		run.Error = execErr.Error()
		if err := o.Store.FinishRun(run); err != nil {
			logger.Error("finish failed run", "run_id", run.ID, "error", err)
		}
		logger.Error("pipeline failed", "pipeline", pipeline, "run_id", run.ID, "error", execErr)
		return &RunOutcome{Run: run}, execErr
	}

	o.recordResult(run, result, logger)
	findings := o.persistFindings(run, result, logger)

	logger.Info("pipeline completed",
		"pipeline", pipeline,
		"run_id", run.ID,
		"confidence", confidence.Describe(result.Confidence),
		"findings", len(findings),
		"duration_ms", run.DurationMS)

	return &RunOutcome{Run: run, Result: result, Findings: findings}, nil
}

// recordResult finishes the run row with the result's confidence and
// evidence, and feeds a calibration sample for the pipeline.
func (o *Orchestrator) recordResult(run *store.Run, result *construct.Result[any], logger *slog.Logger) {
	run.Status = store.RunCompleted
	run.ConfidenceKind = string(result.Confidence.Kind())
	if n, ok := confidence.Numeric(result.Confidence); ok {
		run.ConfidenceValue = n
	} else {
		run.ConfidenceValue = -1
	}
	if data, err := json.Marshal(result.Confidence); err == nil {
		run.ConfidenceJSON = string(data)
	}
	if data, err := json.Marshal(result.EvidenceRefs); err == nil {
		run.EvidenceJSON = string(data)
	}
	if err := o.Store.FinishRun(run); err != nil {
		logger.Error("finish run", "run_id", run.ID, "error", err)
	}

	if run.ConfidenceValue >= 0 {
		sample := &store.CalibrationSample{
			Construction: run.Pipeline,
			Predicted:    run.ConfidenceValue,
			Outcome:      true,
		}
		if _, err := o.Store.AddCalibrationSample(sample); err != nil {
			logger.Error("record calibration sample", "run_id", run.ID, "error", err)
		}
	}
}

// persistFindings walks the result output and stores every analyzer
// finding it carries.
func (o *Orchestrator) persistFindings(run *store.Run, result *construct.Result[any], logger *slog.Logger) []*store.FindingRecord {
	for unit, fs := range collectFindings(result.Output) {
		if err := o.Store.AddFindings(run.ID, unit, fs); err != nil {
			logger.Error("persist findings", "run_id", run.ID, "unit", unit, "error", err)
		}
	}
	records, err := o.Store.ListFindingsByRun(run.ID)
	if err != nil {
		logger.Error("list findings", "run_id", run.ID, "error", err)
		return nil
	}
	return records
}

// collectFindings recursively extracts findings from pipeline output:
// wrapped analyzer maps, parallel branch slices, and nested results.
func collectFindings(output any) map[string][]analysis.Finding {
	out := make(map[string][]analysis.Finding)
	walkFindings(output, out)
	return out
}

func walkFindings(output any, into map[string][]analysis.Finding) {
	switch v := output.(type) {
	case map[string]any:
		walkFindings(v["report"], into)
	case []any:
		for _, item := range v {
			walkFindings(item, into)
		}
	case *construct.Result[any]:
		walkFindings(v.Output, into)
	case analysis.QualityReport:
		into["quality-scan"] = append(into["quality-scan"], v.Findings...)
	case analysis.SecurityReport:
		into["security-audit"] = append(into["security-audit"], v.Findings...)
	case analysis.ArchReport:
		into["arch-check"] = append(into["arch-check"], v.Violations...)
	}
}
