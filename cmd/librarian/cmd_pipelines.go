package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"librarian/internal/format"
)

var pipelinesCmd = &cobra.Command{
	Use:   "pipelines",
	Short: "List the available analysis pipelines",
	RunE:  runPipelines,
}

func runPipelines(cmd *cobra.Command, _ []string) error {
	orch, shutdown, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer shutdown()

	tb := format.NewTable(format.ASCII)
	tb.Header("Pipeline", "Steps", "Description")
	for _, name := range orch.PipelineNames() {
		def := orch.Pipelines[name]
		tb.Row(def.Pipeline, len(def.Steps), format.Truncate(def.Description, 70))
	}
	tb.Columns(format.ColumnConfig{Number: 3, MaxWidth: 70})
	fmt.Fprintln(cmd.OutOrStdout(), tb.String())
	return nil
}
