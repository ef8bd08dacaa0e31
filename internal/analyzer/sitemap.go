package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
)

// Sitemap records the session's discovered URL inventory as a site-wide
// artifact. It runs once per session and needs no rendering context.
type Sitemap struct{}

func (s *Sitemap) ID() string { return "sitemap" }

func (s *Sitemap) Run(ctx context.Context, session Session) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := struct {
		StartURL string   `json:"start_url"`
		Count    int      `json:"count"`
		URLs     []string `json:"urls"`
	}{StartURL: session.StartURL, Count: len(session.URLs), URLs: session.URLs}

	content, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode sitemap report: %w", err)
	}
	return &Output{Content: content, PathHint: "sitemap.json"}, nil
}
