package analyzer

import (
	"fmt"
	"strings"

	"github.com/callum/sitecheck/internal/browser"
)

const contentExtractJS = `(() => {
	const pick = (sel) => [...document.querySelectorAll(sel)].map(el => el.innerText.trim()).filter(Boolean);
	return {
		title: document.title || '',
		headings: pick('h1, h2, h3'),
		paragraphs: pick('article p, main p, p'),
	};
})()`

type contentSnapshot struct {
	Title      string   `json:"title"`
	Headings   []string `json:"headings"`
	Paragraphs []string `json:"paragraphs"`
}

// Content extracts the page's readable text into a markdown document.
type Content struct{}

func (c *Content) ID() string { return "content" }

func (c *Content) Run(pctx browser.Context, url string) (*Output, error) {
	var snap contentSnapshot
	if err := pctx.Evaluate(contentExtractJS, &snap); err != nil {
		return nil, fmt.Errorf("content extraction: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", snap.Title)
	fmt.Fprintf(&b, "Source: %s\n\n", url)
	for _, h := range snap.Headings {
		fmt.Fprintf(&b, "## %s\n\n", h)
	}
	seen := make(map[string]bool)
	for _, p := range snap.Paragraphs {
		if seen[p] {
			continue
		}
		seen[p] = true
		fmt.Fprintf(&b, "%s\n\n", p)
	}

	return &Output{Content: []byte(b.String()), PathHint: "content.md"}, nil
}
