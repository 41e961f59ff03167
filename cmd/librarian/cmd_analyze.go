package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"librarian/internal/display"
	"librarian/internal/format"
)

var analyzeFlags struct {
	pipeline string
	path     string
	jsonOut  bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run an analysis pipeline against a directory",
	Long: `Runs the named pipeline against a directory tree and prints the
combined confidence, evidence trail, and findings. The run is persisted;
use 'librarian report' to render it again later.`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeFlags.pipeline, "pipeline", "p", "full-review", "Pipeline name (see 'librarian pipelines')")
	f.StringVar(&analyzeFlags.path, "path", ".", "Directory to analyze")
	f.BoolVar(&analyzeFlags.jsonOut, "json", false, "Print the raw run record as JSON")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	orch, shutdown, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer shutdown()

	outcome, err := orch.Run(cmd.Context(), analyzeFlags.pipeline, analyzeFlags.path)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	out := cmd.OutOrStdout()
	run := outcome.Run

	if analyzeFlags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	fmt.Fprintf(out, "Run:        #%d\n", run.ID)
	fmt.Fprintf(out, "Pipeline:   %s\n", run.Pipeline)
	fmt.Fprintf(out, "Status:     %s\n", display.RunStatus(run.Status))
	fmt.Fprintf(out, "Confidence: %s\n", display.Confidence(outcome.Result.Confidence))
	fmt.Fprintf(out, "Duration:   %s\n", format.FmtMillis(run.DurationMS))

	if len(outcome.Result.EvidenceRefs) > 0 {
		fmt.Fprintf(out, "Evidence:\n")
		for _, ref := range outcome.Result.EvidenceRefs {
			fmt.Fprintf(out, "  %s\n", ref)
		}
	}

	if len(outcome.Findings) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, findingsTable(outcome.Findings, format.ASCII))
	} else {
		fmt.Fprintf(out, "No findings.\n")
	}
	return nil
}
