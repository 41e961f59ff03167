package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"librarian/internal/analysis"
	"librarian/internal/format"
)

var rationaleCmd = &cobra.Command{
	Use:   "rationale",
	Short: "Record and browse design rationale entries",
}

var rationaleAddFlags struct {
	symbol    string
	decision  string
	rationale string
	author    string
}

var rationaleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a design decision for a symbol",
	RunE:  runRationaleAdd,
}

var rationaleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded design decisions",
	RunE:  runRationaleList,
}

func init() {
	f := rationaleAddCmd.Flags()
	f.StringVar(&rationaleAddFlags.symbol, "symbol", "", "Symbol the decision applies to (required)")
	f.StringVar(&rationaleAddFlags.decision, "decision", "", "What was decided (required)")
	f.StringVar(&rationaleAddFlags.rationale, "why", "", "Why it was decided")
	f.StringVar(&rationaleAddFlags.author, "author", "", "Who decided")
	_ = rationaleAddCmd.MarkFlagRequired("symbol")
	_ = rationaleAddCmd.MarkFlagRequired("decision")

	rationaleCmd.AddCommand(rationaleAddCmd)
	rationaleCmd.AddCommand(rationaleListCmd)
}

func runRationaleAdd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	entry := &analysis.RationaleEntry{
		Symbol:    rationaleAddFlags.symbol,
		Decision:  rationaleAddFlags.decision,
		Rationale: rationaleAddFlags.rationale,
		Author:    rationaleAddFlags.author,
	}
	if _, err := st.SaveRationale(entry); err != nil {
		return fmt.Errorf("save rationale: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recorded rationale for %s\n", entry.Symbol)
	return nil
}

func runRationaleList(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.ListRationale()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No rationale recorded.")
		return nil
	}

	tb := format.NewTable(format.ASCII)
	tb.Header("Symbol", "Decision", "Why", "Author", "Recorded")
	for _, e := range entries {
		tb.Row(e.Symbol, format.Truncate(e.Decision, 40), format.Truncate(e.Rationale, 40),
			e.Author, e.RecordedAt.Format("2006-01-02"))
	}
	fmt.Fprintln(cmd.OutOrStdout(), tb.String())
	return nil
}
