// librarian is the code-intelligence CLI: run analysis pipelines, render
// reports, record design rationale, and serve the engine over MCP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"librarian/internal/logging"
	"librarian/internal/store"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
	dbPath    string
	rulesPath string
	pipeDir   string
	trace     bool
}

var rootCmd = &cobra.Command{
	Use:   "librarian",
	Short: "Composable code analysis with typed confidence",
	Long: "Librarian runs composable analysis pipelines over a codebase and\n" +
		"propagates typed confidence values through every composition step.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level, err := logging.ParseLevel(rootFlags.logLevel)
		if err != nil {
			return err
		}
		logging.Init(level, rootFlags.logFormat, cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text, json)")
	pf.StringVar(&rootFlags.dbPath, "db", store.DefaultDBPath, "Store DB path (\"mem\" for in-memory)")
	pf.StringVar(&rootFlags.rulesPath, "rules", ".librarian/rules.yaml", "Layering rules file for arch-check")
	pf.StringVar(&rootFlags.pipeDir, "pipelines-dir", ".librarian/pipelines", "Directory of extra pipeline YAML files")
	pf.BoolVar(&rootFlags.trace, "trace", false, "Emit OpenTelemetry spans for every pipeline stage")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(pipelinesCmd)
	rootCmd.AddCommand(rationaleCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
