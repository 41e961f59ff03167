package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"librarian/internal/logging"
	mcpserver "librarian/internal/mcp"
	"librarian/internal/metrics"
	"librarian/pkg/construct"
)

var serveFlags struct {
	metricsAddr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout. Clients connect via their MCP
configuration and drive analysis through the run_analysis, get_report,
list_pipelines, list_runs, and record_rationale tools.

The server monitors for parent process death. When the client disconnects
or restarts, the server self-terminates to prevent zombie processes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :9090)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := logging.New("serve")

	orch, shutdown, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer shutdown()

	if serveFlags.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		promTracer := metrics.NewPromTracer(reg)
		if orch.Tracer != nil {
			orch.Tracer = construct.MultiTracer{orch.Tracer, promTracer}
		} else {
			orch.Tracer = promTracer
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			logger.Info("metrics listener starting", "addr", serveFlags.metricsAddr)
			if err := http.ListenAndServe(serveFlags.metricsAddr, mux); err != nil {
				logger.Error("metrics listener stopped", "error", err)
			}
		}()
	}

	srv := mcpserver.NewServer(orch)
	defer srv.Shutdown()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchParent(ctx, cancel)

	logger.Info("starting librarian MCP server over stdio (parent watchdog active)")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
