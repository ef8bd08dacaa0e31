// Package analyzer implements the per-test inspections that run against a
// rendered page or against the session as a whole. Analyzers are read-only:
// they must not retain the rendering context after returning.
package analyzer

import (
	"context"
	"fmt"

	"github.com/callum/sitecheck/internal/browser"
	"github.com/callum/sitecheck/internal/models"
)

// Output is what an analyzer hands back: raw content plus a path hint the
// output sink may use when persisting it. The hint is never used to classify
// results.
type Output struct {
	Content  []byte
	PathHint string
}

// PageAnalyzer inspects one rendered page.
type PageAnalyzer interface {
	ID() string
	Run(pctx browser.Context, url string) (*Output, error)
}

// SessionAnalyzer runs once per session, without a rendering context.
type SessionAnalyzer interface {
	ID() string
	Run(ctx context.Context, session Session) (*Output, error)
}

// Viewport is one emulated screen size for screenshot-style tests.
type Viewport struct {
	Name   string
	Width  int64
	Height int64
}

// ViewportAnalyzer is a page analyzer that iterates an internal dimension.
// The pipeline expands it into one independent work item per viewport so a
// single viewport's failure stays isolated.
type ViewportAnalyzer interface {
	PageAnalyzer
	Viewports() []Viewport
	Capture(pctx browser.Context, url string, vp Viewport) (*Output, error)
}

// Session carries the session-level inputs available to session analyzers.
type Session struct {
	StartURL string
	URLs     []string
}

// Registry maps test ids to runnable analyzers. It is built once at startup
// from the test catalog and read-only afterwards.
type Registry struct {
	page    map[string]PageAnalyzer
	session map[string]SessionAnalyzer
}

// NewRegistry constructs analyzers for every definition in the catalog.
// An id without a known analyzer is a configuration error.
func NewRegistry(defs []models.TestDefinition) (*Registry, error) {
	r := &Registry{
		page:    make(map[string]PageAnalyzer),
		session: make(map[string]SessionAnalyzer),
	}
	for _, def := range defs {
		switch def.Scope {
		case models.ScopePage:
			a, ok := pageBuilders[def.ID]
			if !ok {
				return nil, fmt.Errorf("test %s: no analyzer registered for id", def.ID)
			}
			r.page[def.ID] = a()
		case models.ScopeSession:
			a, ok := sessionBuilders[def.ID]
			if !ok {
				return nil, fmt.Errorf("test %s: no analyzer registered for id", def.ID)
			}
			r.session[def.ID] = a()
		default:
			return nil, fmt.Errorf("test %s: invalid scope %q", def.ID, def.Scope)
		}
	}
	return r, nil
}

// Page returns the page analyzer for id.
func (r *Registry) Page(id string) (PageAnalyzer, bool) {
	a, ok := r.page[id]
	return a, ok
}

// Session returns the session analyzer for id.
func (r *Registry) Session(id string) (SessionAnalyzer, bool) {
	a, ok := r.session[id]
	return a, ok
}

var pageBuilders = map[string]func() PageAnalyzer{
	"seo":         func() PageAnalyzer { return &SEO{} },
	"a11y":        func() PageAnalyzer { return &Accessibility{} },
	"content":     func() PageAnalyzer { return &Content{} },
	"secrets":     func() PageAnalyzer { return &Secrets{} },
	"console":     func() PageAnalyzer { return &Console{} },
	"links":       func() PageAnalyzer { return &Links{} },
	"screenshots": func() PageAnalyzer { return NewScreenshots() },
}

var sessionBuilders = map[string]func() SessionAnalyzer{
	"sitemap": func() SessionAnalyzer { return &Sitemap{} },
}
