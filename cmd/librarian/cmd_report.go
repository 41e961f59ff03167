package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"librarian/internal/display"
	"librarian/internal/format"
	"librarian/internal/store"
)

var reportFlags struct {
	runID  int64
	output string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the report for a recorded run",
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.Int64Var(&reportFlags.runID, "run-id", 0, "Run DB ID (required)")
	f.StringVar(&reportFlags.output, "format", "ascii", "Output format (ascii, markdown)")
	_ = reportCmd.MarkFlagRequired("run-id")
}

func runReport(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.GetRun(reportFlags.runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no run with id %d", reportFlags.runID)
	}
	findings, err := st.ListFindingsByRun(run.ID)
	if err != nil {
		return err
	}

	mode := format.ParseMode(reportFlags.output)
	out := cmd.OutOrStdout()

	summary := format.NewTable(mode)
	summary.Header("Run", "Pipeline", "Status", "Confidence", "Duration")
	summary.Row(run.ID, run.Pipeline, display.RunStatus(run.Status),
		fmt.Sprintf("%s [%s]", format.FmtPercent(run.ConfidenceValue), display.ConfidenceKind(run.ConfidenceKind)),
		format.FmtMillis(run.DurationMS))
	fmt.Fprintln(out, summary.String())

	if run.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", run.Error)
	}

	if len(findings) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, findingsTable(findings, mode))
	} else {
		fmt.Fprintf(out, "No findings recorded.\n")
	}
	return nil
}

// findingsTable renders persisted findings grouped into one table.
func findingsTable(findings []*store.FindingRecord, mode format.Mode) string {
	tb := format.NewTable(mode)
	tb.Header("Unit", "Severity", "Rule", "Location", "Message")
	for _, f := range findings {
		loc := f.File
		if f.Line > 0 {
			loc = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		tb.Row(display.Unit(f.Unit), display.Severity(f.Severity), f.Rule, loc, format.Truncate(f.Message, 60))
	}
	tb.Footer("TOTAL", "", "", "", len(findings))
	tb.Columns(format.ColumnConfig{Number: 5, MaxWidth: 60})
	return tb.String()
}
