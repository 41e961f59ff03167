package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"librarian/pkg/confidence"
	"librarian/pkg/construct"
)

// SecurityReport lists potential secrets and dangerous calls found in the
// target. Pattern matching over source text is inherently noisy, so the
// attached confidence is a bounded range, not a point estimate.
type SecurityReport struct {
	FilesScanned int       `json:"files_scanned"`
	Findings     []Finding `json:"findings"`
}

type securityRule struct {
	name     string
	severity string
	pattern  *regexp.Regexp
	message  string
}

var securityRules = []securityRule{
	{
		name:     "aws-access-key",
		severity: SeverityHigh,
		pattern:  regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
		message:  "possible AWS access key id",
	},
	{
		name:     "hardcoded-password",
		severity: SeverityHigh,
		pattern:  regexp.MustCompile(`(?i)password["']?\s*[:=]\s*["'][^"']{4,}["']`),
		message:  "possible hardcoded password",
	},
	{
		name:     "private-key-block",
		severity: SeverityHigh,
		pattern:  regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),
		message:  "embedded private key material",
	},
	{
		name:     "shell-injection",
		severity: SeverityWarn,
		pattern:  regexp.MustCompile(`exec\.Command\([^)]*\+`),
		message:  "command built by string concatenation",
	},
	{
		name:     "insecure-http",
		severity: SeverityInfo,
		pattern:  regexp.MustCompile(`http://[a-zA-Z0-9.-]+`),
		message:  "plaintext http endpoint",
	},
}

type securityAudit struct{}

// NewSecurityAudit builds the secret and dangerous-call scanner.
func NewSecurityAudit() construct.Construction[Target, SecurityReport] {
	return &securityAudit{}
}

func (s *securityAudit) ID() string   { return "security-audit" }
func (s *securityAudit) Name() string { return "Security Audit" }

// EstimatedConfidence reports the documented precision range of the rule
// set. The upper bound comes from the vendor benchmark, the lower bound
// from our own replication on mixed-language repos.
func (s *securityAudit) EstimatedConfidence() confidence.Value {
	return confidence.NewBounded(0.55, 0.85, "pattern precision range", "gitleaks benchmark replication, 2025-11")
}

func (s *securityAudit) Execute(ctx context.Context, target Target) (*construct.Result[SecurityReport], error) {
	start := time.Now()
	report := SecurityReport{FilesScanned: len(target.Files)}

	for _, f := range target.Files {
		if err := ctx.Err(); err != nil {
			return nil, &construct.CancelledError{ConstructionID: s.ID(), Err: err}
		}
		for i, line := range strings.Split(f.Content, "\n") {
			for _, rule := range securityRules {
				if rule.pattern.MatchString(line) {
					report.Findings = append(report.Findings, Finding{
						Rule:     rule.name,
						Severity: rule.severity,
						File:     f.Path,
						Line:     i + 1,
						Message:  rule.message,
					})
				}
			}
		}
	}
	sortFindings(report.Findings)

	return &construct.Result[SecurityReport]{
		Output:       report,
		Confidence:   s.EstimatedConfidence(),
		EvidenceRefs: []string{evidenceRef("security", fmt.Sprintf("rules:%d:findings:%d", len(securityRules), len(report.Findings)))},
		AnalysisTime: time.Since(start),
		Attempts:     1,
	}, nil
}
