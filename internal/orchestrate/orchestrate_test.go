package orchestrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"librarian/internal/analysis"
	"librarian/internal/store"
	"librarian/pkg/confidence"
)

func writeTarget(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"svc/service.go": "package svc\n\ntype Service struct{}\n\nfunc New() *Service { return nil }\n",
		"svc/creds.go":   "package svc\n\nvar password = \"hunter22\"\n",
		"README.md":      "# demo\n",
	}
	for path, content := range files {
		full := filepath.Join(root, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func newOrchestrator(t *testing.T) (*Orchestrator, *store.MemStore) {
	t.Helper()
	st := store.NewMemStore()
	o, err := New(st, nil)
	if err != nil {
		t.Fatal(err)
	}
	return o, st
}

func TestBuiltinPipelinesValidate(t *testing.T) {
	o, _ := newOrchestrator(t)
	for name, def := range o.Pipelines {
		if err := def.Validate(o.Registry); err != nil {
			t.Errorf("builtin pipeline %q invalid: %v", name, err)
		}
	}
}

func TestRunFullReview(t *testing.T) {
	o, st := newOrchestrator(t)
	root := writeTarget(t)

	outcome, err := o.Run(context.Background(), "full-review", root)
	if err != nil {
		t.Fatal(err)
	}
	run := outcome.Run
	if run.Status != store.RunCompleted {
		t.Errorf("status = %q", run.Status)
	}
	if run.ConfidenceKind != string(confidence.KindDerived) {
		t.Errorf("confidence kind = %q", run.ConfidenceKind)
	}
	if run.ConfidenceValue < 0 || run.ConfidenceValue > 1 {
		t.Errorf("confidence value = %v", run.ConfidenceValue)
	}

	// the hardcoded password must survive into the persisted findings
	var sawPassword bool
	for _, f := range outcome.Findings {
		if f.Unit == "security-audit" && f.Rule == "hardcoded-password" {
			sawPassword = true
		}
	}
	if !sawPassword {
		t.Errorf("password finding not persisted: %v", outcome.Findings)
	}

	// a completed run feeds the calibration history
	rate, n, err := st.CalibrationRate("full-review")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || rate != 1 {
		t.Errorf("calibration rate = %v, n = %d", rate, n)
	}
}

func TestRunDeepDiveUsesRationale(t *testing.T) {
	o, st := newOrchestrator(t)
	root := writeTarget(t)
	if _, err := st.SaveRationale(&analysis.RationaleEntry{
		Symbol:   "New",
		Decision: "constructors return concrete types",
	}); err != nil {
		t.Fatal(err)
	}

	outcome, err := o.Run(context.Background(), "deep-dive", root)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Run.ConfidenceKind != string(confidence.KindDerived) {
		t.Errorf("confidence kind = %q", outcome.Run.ConfidenceKind)
	}
	report := outcome.Result.Output.(map[string]any)["report"].(analysis.RationaleAnswer)
	if len(report.Entries["New"]) != 1 {
		t.Errorf("rationale answer = %+v", report)
	}
}

func TestRunGatedAuditRoutesOnConfidence(t *testing.T) {
	o, _ := newOrchestrator(t)
	root := writeTarget(t)

	outcome, err := o.Run(context.Background(), "gated-audit", root)
	if err != nil {
		t.Fatal(err)
	}
	// quality-scan ships with 0.87 measured confidence, above the 0.8
	// gate, so the audit branch runs and flags the password.
	var sawAudit bool
	for _, f := range outcome.Findings {
		if f.Unit == "security-audit" {
			sawAudit = true
		}
	}
	if !sawAudit {
		t.Errorf("expected security-audit findings, got %v", outcome.Findings)
	}
}

func TestRunUnknownPipeline(t *testing.T) {
	o, _ := newOrchestrator(t)
	if _, err := o.Run(context.Background(), "nope", t.TempDir()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunFailureStillRecorded(t *testing.T) {
	o, st := newOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Run(ctx, "quick-scan", writeTarget(t))
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	runs, listErr := st.ListRuns(1)
	if listErr != nil {
		t.Fatal(listErr)
	}
	if len(runs) != 1 || runs[0].Status != store.RunFailed {
		t.Errorf("runs = %+v", runs)
	}
	if runs[0].Error == "" {
		t.Error("failed run should carry the error message")
	}
}

func TestAddPipelineRejectsDuplicates(t *testing.T) {
	o, _ := newOrchestrator(t)
	defs, err := BuiltinPipelines()
	if err != nil {
		t.Fatal(err)
	}
	if err := o.AddPipeline(defs["quick-scan"]); err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestLoadPipelineDir(t *testing.T) {
	o, _ := newOrchestrator(t)
	dir := t.TempDir()
	custom := `pipeline: custom
steps:
  - unit: arch-check
`
	if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := o.LoadPipelineDir(dir); err != nil {
		t.Fatal(err)
	}
	if _, ok := o.Pipelines["custom"]; !ok {
		t.Errorf("pipelines = %v", o.PipelineNames())
	}
}

func TestLoadPipelineDirMissingIsFine(t *testing.T) {
	o, _ := newOrchestrator(t)
	if err := o.LoadPipelineDir(filepath.Join(t.TempDir(), "absent")); err != nil {
		t.Fatal(err)
	}
}
