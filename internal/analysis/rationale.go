package analysis

import (
	"context"
	"fmt"
	"time"

	"librarian/pkg/confidence"
	"librarian/pkg/construct"
)

// RationaleEntry is a recorded design decision attached to a symbol.
type RationaleEntry struct {
	Symbol     string    `json:"symbol"`
	Decision   string    `json:"decision"`
	Rationale  string    `json:"rationale"`
	Author     string    `json:"author"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RationaleSource serves recorded rationale entries. The persistent store
// implements this; tests use in-memory maps.
type RationaleSource interface {
	RationaleFor(ctx context.Context, symbol string) ([]RationaleEntry, error)
}

// RationaleQuery names the symbols to explain.
type RationaleQuery struct {
	Symbols []string `json:"symbols"`
}

// RationaleAnswer maps each queried symbol to its recorded entries.
// Symbols with no recorded rationale are listed in Missing.
type RationaleAnswer struct {
	Entries map[string][]RationaleEntry `json:"entries"`
	Missing []string                    `json:"missing"`
}

type rationaleLookup struct {
	source RationaleSource
}

// NewRationaleLookup builds the design-rationale unit on top of a source.
func NewRationaleLookup(source RationaleSource) construct.Construction[RationaleQuery, RationaleAnswer] {
	return &rationaleLookup{source: source}
}

func (r *rationaleLookup) ID() string   { return "rationale-lookup" }
func (r *rationaleLookup) Name() string { return "Rationale Lookup" }

func (r *rationaleLookup) Execute(ctx context.Context, query RationaleQuery) (*construct.Result[RationaleAnswer], error) {
	start := time.Now()
	answer := RationaleAnswer{Entries: make(map[string][]RationaleEntry)}
	inputs := make([]confidence.Input, 0, len(query.Symbols))

	for _, symbol := range query.Symbols {
		if err := ctx.Err(); err != nil {
			return nil, &construct.CancelledError{ConstructionID: r.ID(), Err: err}
		}
		entries, err := r.source.RationaleFor(ctx, symbol)
		if err != nil {
			return nil, &construct.Error{
				ConstructionID: r.ID(),
				Msg:            fmt.Sprintf("lookup for %q failed", symbol),
				Err:            err,
			}
		}
		covered := len(entries) > 0
		if covered {
			answer.Entries[symbol] = entries
		} else {
			answer.Missing = append(answer.Missing, symbol)
		}
		inputs = append(inputs, confidence.Input{
			Name:       symbol,
			Confidence: confidence.NewDeterministic(covered, "rationale recorded"),
		})
	}

	// Coverage fraction over the queried symbols: averaging the per-symbol
	// verdicts gives hits/total directly.
	return &construct.Result[RationaleAnswer]{
		Output:       answer,
		Confidence:   confidence.Derive(inputs, confidence.FormulaAverage),
		EvidenceRefs: []string{evidenceRef("rationale", fmt.Sprintf("hits:%d:missing:%d", len(answer.Entries), len(answer.Missing)))},
		AnalysisTime: time.Since(start),
		Attempts:     1,
	}, nil
}
