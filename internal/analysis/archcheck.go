package analysis

import (
	"context"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"librarian/pkg/confidence"
	"librarian/pkg/construct"
)

// LayerRule forbids imports from one package prefix into another. Paths
// are matched against the file's directory and the imported path.
type LayerRule struct {
	Name string `json:"name" yaml:"name"`
	From string `json:"from" yaml:"from"` // directory prefix of the importing file
	To   string `json:"to" yaml:"to"`     // forbidden import prefix
}

// ArchReport is the outcome of the layering check. Passed is a boolean
// verdict: either every rule holds or it does not.
type ArchReport struct {
	Passed     bool      `json:"passed"`
	RulesTried int       `json:"rules_tried"`
	Violations []Finding `json:"violations"`
}

// LayerRules is the on-disk shape of a layering rule file.
type LayerRules struct {
	Rules []LayerRule `yaml:"rules"`
}

// LoadLayerRules reads layering rules from a YAML file. A missing file
// yields no rules, so the architecture check degrades to a pass.
func LoadLayerRules(path string) ([]LayerRule, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read layer rules: %w", err)
	}
	var file LayerRules
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse layer rules %s: %w", path, err)
	}
	return file.Rules, nil
}

var goImportLine = regexp.MustCompile(`^\s*(?:[_.]|\w+\s+)?"([^"]+)"`)

type archCheck struct {
	rules []LayerRule
}

// NewArchCheck builds the layering analyzer. Rules are evaluated against
// go files only; other languages are skipped.
func NewArchCheck(rules []LayerRule) construct.Construction[Target, ArchReport] {
	return &archCheck{rules: rules}
}

func (a *archCheck) ID() string   { return "arch-check" }
func (a *archCheck) Name() string { return "Architecture Check" }

func (a *archCheck) Execute(ctx context.Context, target Target) (*construct.Result[ArchReport], error) {
	start := time.Now()
	report := ArchReport{Passed: true, RulesTried: len(a.rules)}

	for _, f := range target.Files {
		if err := ctx.Err(); err != nil {
			return nil, &construct.CancelledError{ConstructionID: a.ID(), Err: err}
		}
		if f.Language != "go" {
			continue
		}
		dir := path.Dir(f.Path)
		for _, imported := range goImports(f.Content) {
			for _, rule := range a.rules {
				if strings.HasPrefix(dir, rule.From) && strings.HasPrefix(imported.path, rule.To) {
					report.Passed = false
					report.Violations = append(report.Violations, Finding{
						Rule:     rule.Name,
						Severity: SeverityHigh,
						File:     f.Path,
						Line:     imported.line,
						Message:  fmt.Sprintf("%s must not import %s", rule.From, imported.path),
					})
				}
			}
		}
	}
	sortFindings(report.Violations)

	// The verdict is exact for the rules given: an import either matches a
	// forbidden prefix or it does not.
	verdict := confidence.NewDeterministic(report.Passed, fmt.Sprintf("%d layering rules evaluated", len(a.rules)))

	return &construct.Result[ArchReport]{
		Output:       report,
		Confidence:   verdict,
		EvidenceRefs: []string{evidenceRef("arch", fmt.Sprintf("rules:%d:violations:%d", len(a.rules), len(report.Violations)))},
		AnalysisTime: time.Since(start),
		Attempts:     1,
	}, nil
}

type importRef struct {
	path string
	line int
}

// goImports extracts imported paths with their line numbers from go
// source, handling both single import statements and import blocks.
func goImports(content string) []importRef {
	var (
		refs    []importRef
		inBlock bool
	)
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case inBlock && trimmed == ")":
			inBlock = false
		case inBlock:
			if m := goImportLine.FindStringSubmatch(line); m != nil {
				refs = append(refs, importRef{path: m[1], line: i + 1})
			}
		case strings.HasPrefix(trimmed, "import "):
			if m := goImportLine.FindStringSubmatch(strings.TrimPrefix(trimmed, "import ")); m != nil {
				refs = append(refs, importRef{path: m[1], line: i + 1})
			}
		}
	}
	return refs
}
