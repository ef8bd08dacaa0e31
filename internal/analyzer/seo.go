package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/callum/sitecheck/internal/browser"
)

// seoSnapshot is the page metadata extracted in one evaluation round trip.
type seoSnapshot struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Canonical   string `json:"canonical"`
	H1Count     int    `json:"h1Count"`
	RobotsMeta  string `json:"robotsMeta"`
}

const seoExtractJS = `(() => {
	const meta = (name) => {
		const el = document.querySelector('meta[name="' + name + '"]');
		return el ? (el.getAttribute('content') || '') : '';
	};
	const link = document.querySelector('link[rel="canonical"]');
	return {
		title: document.title || '',
		description: meta('description'),
		canonical: link ? (link.getAttribute('href') || '') : '',
		h1Count: document.querySelectorAll('h1').length,
		robotsMeta: meta('robots'),
	};
})()`

// SEO checks title, meta description, canonical link, and heading structure.
type SEO struct{}

func (s *SEO) ID() string { return "seo" }

func (s *SEO) Run(pctx browser.Context, url string) (*Output, error) {
	var snap seoSnapshot
	if err := pctx.Evaluate(seoExtractJS, &snap); err != nil {
		return nil, fmt.Errorf("seo extraction: %w", err)
	}

	var findings []string
	if snap.Title == "" {
		findings = append(findings, "missing <title>")
	} else if len(snap.Title) > 60 {
		findings = append(findings, fmt.Sprintf("title is %d characters (recommended <= 60)", len(snap.Title)))
	}
	if snap.Description == "" {
		findings = append(findings, "missing meta description")
	} else if len(snap.Description) > 160 {
		findings = append(findings, fmt.Sprintf("meta description is %d characters (recommended <= 160)", len(snap.Description)))
	}
	if snap.Canonical == "" {
		findings = append(findings, "missing canonical link")
	}
	switch snap.H1Count {
	case 0:
		findings = append(findings, "no <h1> heading")
	case 1:
		// Exactly one h1 is what we want.
	default:
		findings = append(findings, fmt.Sprintf("%d <h1> headings (expected 1)", snap.H1Count))
	}
	if strings.Contains(strings.ToLower(snap.RobotsMeta), "noindex") {
		findings = append(findings, "page is marked noindex")
	}

	report := struct {
		URL      string      `json:"url"`
		Snapshot seoSnapshot `json:"snapshot"`
		Findings []string    `json:"findings"`
	}{URL: url, Snapshot: snap, Findings: findings}

	content, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode seo report: %w", err)
	}
	return &Output{Content: content, PathHint: "seo.json"}, nil
}
