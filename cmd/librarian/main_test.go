package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"librarian/internal/analysis"
	"librarian/internal/format"
	"librarian/internal/store"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("librarian %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func writeDemoTarget(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	content := "package svc\n\nvar password = \"hunter22\"\n\nfunc New() int { return 1 }\n"
	if err := os.WriteFile(filepath.Join(root, "svc.go"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestAnalyzeCommand(t *testing.T) {
	out := runCLI(t, "analyze", "--db", "mem", "--pipeline", "full-review", "--path", writeDemoTarget(t))

	if !strings.Contains(out, "Pipeline:   full-review") {
		t.Errorf("missing pipeline line:\n%s", out)
	}
	if !strings.Contains(out, "hardcoded-password") {
		t.Errorf("missing password finding:\n%s", out)
	}
	if !strings.Contains(out, "Derived") {
		t.Errorf("missing confidence summary:\n%s", out)
	}
}

func TestAnalyzeCommandJSON(t *testing.T) {
	out := runCLI(t, "analyze", "--db", "mem", "--pipeline", "quick-scan", "--path", writeDemoTarget(t), "--json")
	if !strings.Contains(out, `"pipeline": "quick-scan"`) {
		t.Errorf("missing json field:\n%s", out)
	}
}

func TestPipelinesCommand(t *testing.T) {
	out := runCLI(t, "pipelines", "--db", "mem")
	for _, want := range []string{"quick-scan", "full-review", "deep-dive", "gated-audit", "best-signal"} {
		if !strings.Contains(out, want) {
			t.Errorf("pipelines output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusCommandEmpty(t *testing.T) {
	out := runCLI(t, "status", "--db", "mem")
	if !strings.Contains(out, "No runs recorded") {
		t.Errorf("unexpected status output:\n%s", out)
	}
}

func TestFindingsTable(t *testing.T) {
	findings := []*store.FindingRecord{
		{Unit: "security-audit", Rule: "hardcoded-password", Severity: analysis.SeverityHigh, File: "svc.go", Line: 3, Message: "possible hardcoded password"},
	}
	out := findingsTable(findings, format.Markdown)
	if !strings.Contains(out, "Security Audit") || !strings.Contains(out, "svc.go:3") {
		t.Errorf("table = \n%s", out)
	}
}
