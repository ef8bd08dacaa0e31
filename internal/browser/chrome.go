package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const healthCheckTimeout = 5 * time.Second

// DefaultExtractTimeout bounds a single extraction action (title, markup,
// evaluation, screenshot) so a stuck page cannot hang a worker forever.
const DefaultExtractTimeout = 30 * time.Second

// Chrome is an Engine backed by a single headless Chrome process managed
// through chromedp. Contexts map to browser tabs.
type Chrome struct {
	mu             sync.Mutex
	opts           []chromedp.ExecAllocatorOption
	extractTimeout time.Duration
	allocCtx       context.Context
	allocCancel    context.CancelFunc
	browserCtx     context.Context
	browserCancel  context.CancelFunc
	closed         bool
}

// NewChrome launches the browser process eagerly so startup failures
// surface before any work is scheduled. extractTimeout <= 0 selects the
// default extraction budget.
func NewChrome(headless bool, extractTimeout time.Duration) (*Chrome, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
	)
	if extractTimeout <= 0 {
		extractTimeout = DefaultExtractTimeout
	}
	c := &Chrome{opts: opts, extractTimeout: extractTimeout}
	if err := c.start(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Chrome) start() error {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), c.opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Running an empty action forces the browser process to launch.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("launch browser: %w", err)
	}

	c.allocCtx = allocCtx
	c.allocCancel = allocCancel
	c.browserCtx = browserCtx
	c.browserCancel = browserCancel
	return nil
}

// NewContext opens a fresh tab. The caller owns the returned context and
// must Close it before pulling its next work item.
func (c *Chrome) NewContext() (Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("engine is closed")
	}
	if c.browserCtx == nil || c.browserCtx.Err() != nil {
		return nil, fmt.Errorf("browser is not running")
	}

	tabCtx, tabCancel := chromedp.NewContext(c.browserCtx)
	t := &tab{ctx: tabCtx, cancel: tabCancel, extractTimeout: c.extractTimeout}

	chromedp.ListenTarget(tabCtx, func(ev any) {
		switch e := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			var parts string
			for _, arg := range e.Args {
				if len(arg.Value) > 0 {
					parts += string(arg.Value) + " "
				}
			}
			t.appendLog(ConsoleLog{Type: string(e.Type), Text: parts})
		case *runtime.EventExceptionThrown:
			if e.ExceptionDetails != nil {
				t.appendLog(ConsoleLog{Type: "exception", Text: e.ExceptionDetails.Text})
			}
		}
	})

	return t, nil
}

// Healthy reports whether the shared browser still responds. It runs a
// trivial evaluation in a short-lived tab under a tight deadline.
func (c *Chrome) Healthy() bool {
	c.mu.Lock()
	browserCtx := c.browserCtx
	closed := c.closed
	c.mu.Unlock()

	if closed || browserCtx == nil || browserCtx.Err() != nil {
		return false
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer tabCancel()
	probeCtx, probeCancel := context.WithTimeout(tabCtx, healthCheckTimeout)
	defer probeCancel()

	var one int
	return chromedp.Run(probeCtx, chromedp.Evaluate("1", &one)) == nil
}

// Restart tears the browser process down and launches a fresh one. Contexts
// opened against the old process are invalid afterwards.
func (c *Chrome) Restart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("engine is closed")
	}
	c.teardown()
	return c.start()
}

// Close shuts the browser down. Idempotent.
func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.teardown()
	c.closed = true
	return nil
}

func (c *Chrome) teardown() {
	if c.browserCancel != nil {
		c.browserCancel()
		c.browserCancel = nil
	}
	if c.allocCancel != nil {
		c.allocCancel()
		c.allocCancel = nil
	}
	c.browserCtx = nil
	c.allocCtx = nil
}

// tab is a Context over one chromedp tab.
type tab struct {
	ctx            context.Context
	cancel         context.CancelFunc
	extractTimeout time.Duration

	mu        sync.Mutex
	logs      []ConsoleLog
	closeOnce sync.Once
}

// run executes actions under the extraction deadline so a page that stops
// responding cannot block a worker past the configured budget.
func (t *tab) run(actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(t.ctx, t.extractTimeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (t *tab) appendLog(l ConsoleLog) {
	t.mu.Lock()
	t.logs = append(t.logs, l)
	t.mu.Unlock()
}

func (t *tab) Navigate(url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return &NavigationError{URL: url, Err: err}
	}
	return nil
}

func (t *tab) Title() (string, error) {
	var title string
	if err := t.run(chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("read title: %w", err)
	}
	return title, nil
}

func (t *tab) HTML() (string, error) {
	var html string
	if err := t.run(chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return html, nil
}

func (t *tab) Evaluate(expr string, out any) error {
	if err := t.run(chromedp.Evaluate(expr, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

func (t *tab) Screenshot(width, height int64) ([]byte, error) {
	var buf []byte
	err := t.run(
		chromedp.EmulateViewport(width, height),
		chromedp.FullScreenshot(&buf, 90),
	)
	if err != nil {
		return nil, fmt.Errorf("capture screenshot %dx%d: %w", width, height, err)
	}
	return buf, nil
}

func (t *tab) ConsoleLogs() []ConsoleLog {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ConsoleLog, len(t.logs))
	copy(out, t.logs)
	return out
}

func (t *tab) Close() error {
	t.closeOnce.Do(func() {
		if t.cancel != nil {
			t.cancel()
		}
	})
	return nil
}
