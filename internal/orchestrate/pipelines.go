package orchestrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"librarian/pkg/construct"
)

// Built-in pipeline definitions. They use the same YAML DSL as
// user-supplied files so the two paths cannot drift.
var builtinYAML = []string{
	`pipeline: quick-scan
description: Fast quality pass with a short result cache.
steps:
  - unit: quality-scan
    cache:
      ttl_ms: 60000
      max_entries: 32
`,
	`pipeline: full-review
description: Quality, security, and architecture in parallel; all must succeed.
steps:
  - parallel:
      mode: all
      branches: [quality-scan, security-audit, arch-check]
    timeout_ms: 120000
`,
	`pipeline: best-signal
description: Same three analyzers, tolerating individual failures.
steps:
  - parallel:
      mode: any
      branches: [quality-scan, security-audit, arch-check]
    retry:
      max_attempts: 2
      base_delay_ms: 200
`,
	`pipeline: deep-dive
description: Index symbols, then explain them from recorded rationale.
steps:
  - unit: symbol-index
  - unit: rationale-lookup
`,
	`pipeline: gated-audit
description: Audit only when the quality pass is confident; otherwise recheck architecture.
vars:
  threshold: 0.8
steps:
  - unit: quality-scan
  - when: confidence >= config.threshold
    then: security-audit
    else: arch-check
`,
}

// BuiltinPipelines parses and returns the built-in definitions keyed by
// name.
func BuiltinPipelines() (map[string]*construct.PipelineDef, error) {
	defs := make(map[string]*construct.PipelineDef, len(builtinYAML))
	for _, raw := range builtinYAML {
		def, err := construct.LoadPipelineDef([]byte(raw))
		if err != nil {
			return nil, err
		}
		defs[def.Pipeline] = def
	}
	return defs, nil
}

// LoadPipelineDir reads every .yaml/.yml file in dir into the
// orchestrator. Missing dir is not an error so a bare workspace works.
func (o *Orchestrator) LoadPipelineDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read pipeline dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read pipeline file %s: %w", name, err)
		}
		def, err := construct.LoadPipelineDef(data)
		if err != nil {
			return fmt.Errorf("pipeline file %s: %w", name, err)
		}
		if err := o.AddPipeline(def); err != nil {
			return fmt.Errorf("pipeline file %s: %w", name, err)
		}
	}
	return nil
}
