// Package browser provides the rendering engine used to load pages for
// analysis. One shared engine serves all workers; each worker owns exactly
// one context for the lifetime of one work item.
package browser

import (
	"fmt"
	"time"
)

// ConsoleLog is a single entry captured from the page's console.
type ConsoleLog struct {
	Type string
	Text string
}

// NavigationError reports a failed page load. Tests scheduled against the
// URL are failed with this shared reason rather than silently skipped.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("page load failed for %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// Context is one loaded page instance. A context has exactly one logical
// owner at a time and is never reused across work items. Close is idempotent.
type Context interface {
	// Navigate loads the URL, waiting for the document to become ready.
	Navigate(url string, timeout time.Duration) error
	// Title returns the document title.
	Title() (string, error)
	// HTML returns the rendered document markup.
	HTML() (string, error)
	// Evaluate runs a JavaScript expression and decodes the result into out.
	Evaluate(expr string, out any) error
	// Screenshot captures a full-page screenshot at the given viewport size.
	Screenshot(width, height int64) ([]byte, error)
	// ConsoleLogs returns console entries captured since Navigate.
	ConsoleLogs() []ConsoleLog
	// Close releases the context. Safe to call more than once.
	Close() error
}

// Engine is the shared rendering resource. Healthy is consulted before each
// context acquisition; Restart is the single recovery mechanism when the
// engine is lost mid-phase.
type Engine interface {
	NewContext() (Context, error)
	Healthy() bool
	Restart() error
	Close() error
}
