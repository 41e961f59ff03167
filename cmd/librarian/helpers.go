package main

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"librarian/internal/analysis"
	"librarian/internal/orchestrate"
	"librarian/internal/store"
	"librarian/internal/tracing"
)

// openStore opens the configured store. "mem" keeps everything in
// process, useful for one-off runs.
func openStore() (store.Store, error) {
	if rootFlags.dbPath == "mem" {
		return store.NewMemStore(), nil
	}
	st, err := store.Open(rootFlags.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// newOrchestrator wires the orchestrator from the global flags: store,
// layering rules, extra pipeline files, and optionally an OTel tracer
// writing spans to stderr. The returned shutdown func flushes the
// tracer provider and closes the store.
func newOrchestrator() (*orchestrate.Orchestrator, func(), error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	rules, err := analysis.LoadLayerRules(rootFlags.rulesPath)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	orch, err := orchestrate.New(st, rules)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	if err := orch.LoadPipelineDir(rootFlags.pipeDir); err != nil {
		st.Close()
		return nil, nil, err
	}

	shutdown := func() { st.Close() }
	if rootFlags.trace {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("create trace exporter: %w", err)
		}
		provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		orch.Tracer = tracing.NewOTelTracer(provider.Tracer("librarian"))
		shutdown = func() {
			provider.Shutdown(context.Background())
			st.Close()
		}
	}
	return orch, shutdown, nil
}
