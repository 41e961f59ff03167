// Package analysis provides the built-in analysis units: code quality,
// security findings, architecture rules, symbol indexing, and rationale
// lookup. Each unit implements the construct.Construction contract and can
// be composed into pipelines directly or through the YAML DSL.
package analysis

import (
	"fmt"
	"sort"
	"strings"
)

// Target is the unit of work handed to every analyzer: a set of source
// files already read from disk. Scanning and git history are the caller's
// concern, not the analyzers'.
type Target struct {
	Root  string       `json:"root"`
	Files []SourceFile `json:"files"`
}

// SourceFile is one file of the target.
type SourceFile struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// Finding is a single reported issue, shared by all analyzers.
type Finding struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"` // "info", "warn", "high"
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
}

// Severity codes in ascending order.
const (
	SeverityInfo = "info"
	SeverityWarn = "warn"
	SeverityHigh = "high"
)

// LanguageOf guesses a language from a file extension. Unknown extensions
// report "text".
func LanguageOf(path string) string {
	switch {
	case strings.HasSuffix(path, ".go"):
		return "go"
	case strings.HasSuffix(path, ".py"):
		return "python"
	case strings.HasSuffix(path, ".js"), strings.HasSuffix(path, ".ts"):
		return "javascript"
	case strings.HasSuffix(path, ".java"):
		return "java"
	case strings.HasSuffix(path, ".rs"):
		return "rust"
	default:
		return "text"
	}
}

// sortFindings orders findings by file then line for stable output.
func sortFindings(fs []Finding) {
	sort.Slice(fs, func(i, j int) bool {
		if fs[i].File != fs[j].File {
			return fs[i].File < fs[j].File
		}
		return fs[i].Line < fs[j].Line
	})
}

// evidenceRef builds the standard analyzer evidence breadcrumb.
func evidenceRef(unit, detail string) string {
	return fmt.Sprintf("analysis:%s:%s", unit, detail)
}
