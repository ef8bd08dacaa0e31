package analyzer

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/callum/sitecheck/internal/browser"
)

// secretPatterns covers credentials that commonly leak into shipped markup
// or inline scripts. Patterns are matched against the rendered document.
var secretPatterns = []struct {
	Name    string
	Pattern *regexp.Regexp
}{
	{"aws-access-key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{"github-token", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`)},
	{"stripe-key", regexp.MustCompile(`\b[sr]k_live_[A-Za-z0-9]{20,}\b`)},
	{"google-api-key", regexp.MustCompile(`\bAIza[0-9A-Za-z_-]{35}\b`)},
	{"slack-token", regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`)},
	{"private-key-block", regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH )?PRIVATE KEY-----`)},
	{"generic-api-key", regexp.MustCompile(`(?i)\bapi[_-]?key["':\s=]{1,4}[A-Za-z0-9_-]{20,}`)},
}

type secretFinding struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// Secrets scans the rendered markup and inline scripts for leaked
// credentials. Matches are reported by kind and count only; the matched
// text itself is never written to disk.
type Secrets struct{}

func (s *Secrets) ID() string { return "secrets" }

func (s *Secrets) Run(pctx browser.Context, url string) (*Output, error) {
	html, err := pctx.HTML()
	if err != nil {
		return nil, fmt.Errorf("secrets scan: %w", err)
	}

	var findings []secretFinding
	for _, sp := range secretPatterns {
		if n := len(sp.Pattern.FindAllStringIndex(html, -1)); n > 0 {
			findings = append(findings, secretFinding{Kind: sp.Name, Count: n})
		}
	}

	report := struct {
		URL      string          `json:"url"`
		Findings []secretFinding `json:"findings"`
		Clean    bool            `json:"clean"`
	}{URL: url, Findings: findings, Clean: len(findings) == 0}

	content, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode secrets report: %w", err)
	}
	return &Output{Content: content, PathHint: "secrets.json"}, nil
}
