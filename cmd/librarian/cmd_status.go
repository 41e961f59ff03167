package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"librarian/internal/display"
	"librarian/internal/format"
)

var statusFlags struct {
	limit int
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent analysis runs",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusFlags.limit, "limit", 10, "Max runs to show")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(statusFlags.limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded. Start one with 'librarian analyze'.")
		return nil
	}

	tb := format.NewTable(format.ASCII)
	tb.Header("Run", "Pipeline", "Target", "Status", "Confidence", "Started")
	for _, r := range runs {
		tb.Row(r.ID, r.Pipeline, format.Truncate(r.TargetRoot, 40),
			display.RunStatus(r.Status), format.FmtPercent(r.ConfidenceValue), r.StartedAt)
	}
	tb.Columns(format.ColumnConfig{Number: 5, Align: format.AlignRight})
	fmt.Fprintln(out, tb.String())
	return nil
}
