package construct

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"librarian/pkg/confidence"
)

func anyUnit(name string, conf float64) Unit {
	return NewFunc(name, name, func(ctx context.Context, input any) (*Result[any], error) {
		return &Result[any]{
			Output:       map[string]any{"unit": name, "score": conf},
			Confidence:   confidence.NewMeasured(conf, 40, 0.9, [2]float64{conf - 0.05, conf + 0.05}, time.Now()),
			EvidenceRefs: []string{"unit:" + name},
		}, nil
	})
}

func testRegistry(t *testing.T) Registry {
	t.Helper()
	reg := Registry{}
	for _, u := range []Unit{
		anyUnit("quality-scan", 0.9),
		anyUnit("security-audit", 0.8),
		anyUnit("arch-check", 0.7),
		anyUnit("rationale-lookup", 0.6),
		anyUnit("symbol-index", 0.5),
	} {
		if err := reg.Register(u); err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

const pipelineYAML = `
pipeline: quality-report
description: scan, cross-check, then route on confidence
vars:
  confident: 0.75
steps:
  - unit: quality-scan
    retry:
      max_attempts: 3
      base_delay_ms: 1
  - parallel:
      mode: any
      branches: [security-audit, arch-check]
  - when: "confidence >= config.confident"
    then: rationale-lookup
    else: symbol-index
`

func TestLoadPipelineDefRoundTrip(t *testing.T) {
	def, err := LoadPipelineDef([]byte(pipelineYAML))
	if err != nil {
		t.Fatal(err)
	}
	if def.Pipeline != "quality-report" {
		t.Errorf("pipeline = %q", def.Pipeline)
	}
	if len(def.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(def.Steps))
	}
	if def.Steps[0].Retry == nil || def.Steps[0].Retry.MaxAttempts != 3 {
		t.Errorf("step 0 retry not parsed: %+v", def.Steps[0].Retry)
	}

	out, err := def.MarshalYAML()
	if err != nil {
		t.Fatal(err)
	}
	again, err := LoadPipelineDef(out)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(def, again); diff != "" {
		t.Errorf("round trip mismatch (-first +second):\n%s", diff)
	}
}

func TestPipelineDefValidate(t *testing.T) {
	reg := testRegistry(t)

	cases := []struct {
		name    string
		mutate  func(*PipelineDef)
		wantErr string
	}{
		{"valid", func(def *PipelineDef) {}, ""},
		{"missing name", func(def *PipelineDef) { def.Pipeline = "" }, "name is required"},
		{"no steps", func(def *PipelineDef) { def.Steps = nil }, "at least one step"},
		{"unknown unit", func(def *PipelineDef) { def.Steps[0].Unit = "nope" }, `unknown unit "nope"`},
		{"unknown branch", func(def *PipelineDef) { def.Steps[1].Parallel.Branches[0] = "nope" }, `unknown parallel branch "nope"`},
		{"bad mode", func(def *PipelineDef) { def.Steps[1].Parallel.Mode = "most" }, "parallel mode"},
		{"conditional missing else", func(def *PipelineDef) { def.Steps[2].Else = "" }, "then and else"},
		{"bad expression", func(def *PipelineDef) { def.Steps[2].When = "((" }, "compile predicate"},
		{"two kinds", func(def *PipelineDef) { def.Steps[0].Parallel = &ParallelDef{Mode: "all", Branches: []string{"arch-check"}} }, "exactly one"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def, err := LoadPipelineDef([]byte(pipelineYAML))
			if err != nil {
				t.Fatal(err)
			}
			tc.mutate(def)
			err = def.Validate(reg)
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestPipelineDefBuildAndExecute(t *testing.T) {
	reg := testRegistry(t)
	def, err := LoadPipelineDef([]byte(pipelineYAML))
	if err != nil {
		t.Fatal(err)
	}

	pipeline, err := def.Build(reg, nil)
	if err != nil {
		t.Fatal(err)
	}

	result, err := pipeline.Execute(context.Background(), map[string]any{"target": "./src"})
	if err != nil {
		t.Fatal(err)
	}

	joined := strings.Join(result.EvidenceRefs, "\n")
	for _, want := range []string{"unit:quality-scan", "unit:security-audit", "unit:arch-check"} {
		if !strings.Contains(joined, want) {
			t.Errorf("evidence missing %q:\n%s", want, joined)
		}
	}

	// Chain confidence entering the conditional is min(0.9, noisy-or(0.8,
	// 0.7)) = 0.9 >= 0.75, so it routes to rationale-lookup.
	if !strings.Contains(joined, "unit:rationale-lookup") {
		t.Errorf("conditional took the wrong branch:\n%s", joined)
	}
	if strings.Contains(joined, "unit:symbol-index") {
		t.Errorf("both conditional branches ran:\n%s", joined)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := Registry{}
	if err := reg.Register(anyUnit("dup", 0.5)); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(anyUnit("dup", 0.6)); err == nil {
		t.Error("duplicate registration must fail")
	}
}
