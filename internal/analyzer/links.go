package analyzer

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"

	"github.com/callum/sitecheck/internal/browser"
)

const linksExtractJS = `[...document.querySelectorAll('a[href]')].map(a => a.href)`

// Links inventories the anchors on a page, split into internal and external
// targets relative to the page's host.
type Links struct{}

func (l *Links) ID() string { return "links" }

func (l *Links) Run(pctx browser.Context, pageURL string) (*Output, error) {
	var hrefs []string
	if err := pctx.Evaluate(linksExtractJS, &hrefs); err != nil {
		return nil, fmt.Errorf("link extraction: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	internal := make(map[string]bool)
	external := make(map[string]bool)
	for _, href := range hrefs {
		u, err := url.Parse(href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		if u.Host == base.Host {
			internal[href] = true
		} else {
			external[href] = true
		}
	}

	report := struct {
		URL      string   `json:"url"`
		Internal []string `json:"internal"`
		External []string `json:"external"`
	}{URL: pageURL, Internal: sortedKeys(internal), External: sortedKeys(external)}

	content, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode links report: %w", err)
	}
	return &Output{Content: content, PathHint: "links.json"}, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
