// Package pipeline coordinates phase execution: session-scoped batches and
// the per-page runner both dispatch through the worker pool, and completed
// results stream back to the caller for aggregation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/callum/sitecheck/internal/analyzer"
	"github.com/callum/sitecheck/internal/browser"
	"github.com/callum/sitecheck/internal/models"
	"github.com/callum/sitecheck/internal/output"
	"github.com/callum/sitecheck/internal/pool"
)

// DefaultNavTimeout bounds a single page load.
const DefaultNavTimeout = 30 * time.Second

// Runner executes page-scoped tests: one rendering context per URL,
// conflict groups concurrent within a page, tests inside a group sequential.
type Runner struct {
	Registry   *analyzer.Registry
	Sink       output.Sink
	NavTimeout time.Duration
}

func (r *Runner) navTimeout() time.Duration {
	if r.NavTimeout <= 0 {
		return DefaultNavTimeout
	}
	return r.NavTimeout
}

// RunPages dispatches one work item per URL through the worker pool with the
// phase's concurrency budget. It returns every settled TestResult plus a
// PhaseFatalError when the engine was lost beyond recovery.
func (r *Runner) RunPages(ctx context.Context, phase models.PhaseExecutionPlan, defs map[string]models.TestDefinition, urls []string, gate *engineGate, onProgress pool.ProgressFunc) ([]models.TestResult, error) {
	groups := pageGroups(phase, defs)
	if len(groups) == 0 || len(urls) == 0 {
		return nil, nil
	}

	items := make([]pool.WorkItem, 0, len(urls))
	for _, u := range urls {
		u := u
		items = append(items, pool.WorkItem{
			ID:          u,
			DisplayName: output.Slug(u),
			Execute: func(ctx context.Context) (any, error) {
				return r.runPage(ctx, u, defs, groups, gate)
			},
		})
	}

	batch := pool.Execute(ctx, items, phase.MaxConcurrency, onProgress)

	var results []models.TestResult
	for _, tr := range append(batch.Succeeded, batch.Failed...) {
		if rs, ok := tr.Value.([]models.TestResult); ok {
			results = append(results, rs...)
		} else if tr.Err != nil {
			// A panicked item carries no per-test results; fan the
			// failure out so every scheduled test still settles.
			results = append(results, failAll(groups, defs, tr.ID, tr.Err)...)
		}
	}

	if gate.isFatal() {
		return results, &PhaseFatalError{Phase: phase.Phase, Err: ErrResourceLost}
	}
	return results, nil
}

// runPage owns one rendering context for the lifetime of one URL's work
// item. The context is released on every exit path.
func (r *Runner) runPage(ctx context.Context, url string, defs map[string]models.TestDefinition, groups [][]string, gate *engineGate) ([]models.TestResult, error) {
	pctx, generation, err := gate.acquire()
	if err != nil {
		return failAll(groups, defs, url, err), err
	}
	defer pctx.Close()

	if err := pctx.Navigate(url, r.navTimeout()); err != nil {
		if gate.lostTo(err, generation) {
			err = fmt.Errorf("%w: %v", ErrResourceLost, err)
		}
		return failAll(groups, defs, url, err), err
	}

	// Conflict groups are pairwise non-conflicting, so distinct groups may
	// inspect the same context concurrently. Tests inside a group run
	// strictly sequentially in execution order.
	var mu sync.Mutex
	var results []models.TestResult

	groupItems := make([]pool.WorkItem, 0, len(groups))
	for gi, group := range groups {
		group := group
		groupItems = append(groupItems, pool.WorkItem{
			ID:          fmt.Sprintf("%s#group%d", url, gi),
			DisplayName: fmt.Sprintf("conflict group %d", gi),
			Execute: func(ctx context.Context) (any, error) {
				for _, id := range group {
					rs := r.runTest(ctx, pctx, url, defs[id])
					mu.Lock()
					results = append(results, rs...)
					mu.Unlock()
				}
				return nil, nil
			},
		})
	}
	pool.Execute(ctx, groupItems, len(groupItems), nil)

	// An engine death mid-page surfaces as analyzer failures; reclassify
	// them so the summary can tell resource loss from page defects.
	lost := false
	for i := range results {
		if results[i].Err != nil && !errors.Is(results[i].Err, ErrResourceLost) && gate.lostTo(results[i].Err, generation) {
			results[i].Err = fmt.Errorf("%w: %v", ErrResourceLost, results[i].Err)
			lost = true
		}
	}
	if lost {
		return results, ErrResourceLost
	}
	return results, nil
}

// runTest executes one test kind against a loaded page. Viewport-iterating
// analyzers expand into one work item per viewport so each size settles
// independently.
func (r *Runner) runTest(ctx context.Context, pctx browser.Context, url string, def models.TestDefinition) []models.TestResult {
	a, ok := r.Registry.Page(def.ID)
	if !ok {
		res := startResult(def, url)
		return []models.TestResult{settle(res, "", fmt.Errorf("no analyzer registered for test %s", def.ID))}
	}

	if va, ok := a.(analyzer.ViewportAnalyzer); ok {
		return r.runViewports(ctx, pctx, url, def, va)
	}

	res := startResult(def, url)
	out, err := a.Run(pctx, url)
	if err != nil {
		return []models.TestResult{settle(res, "", err)}
	}
	path, err := r.save(url, out)
	return []models.TestResult{settle(res, path, err)}
}

// runViewports submits one independent work item per viewport. Viewport
// emulation mutates the shared context, so the items run sequentially.
func (r *Runner) runViewports(ctx context.Context, pctx browser.Context, url string, def models.TestDefinition, va analyzer.ViewportAnalyzer) []models.TestResult {
	viewports := va.Viewports()
	items := make([]pool.WorkItem, 0, len(viewports))
	for _, vp := range viewports {
		vp := vp
		items = append(items, pool.WorkItem{
			ID:          fmt.Sprintf("%s:%s", def.ID, vp.Name),
			DisplayName: fmt.Sprintf("%s %s", def.ID, vp.Name),
			Execute: func(ctx context.Context) (any, error) {
				res := startResult(def, url)
				res.TestType = fmt.Sprintf("%s:%s", def.ID, vp.Name)
				out, err := va.Capture(pctx, url, vp)
				if err != nil {
					return settle(res, "", err), err
				}
				path, err := r.save(url, out)
				return settle(res, path, err), err
			},
		})
	}

	batch := pool.Execute(ctx, items, 1, nil)

	results := make([]models.TestResult, 0, len(viewports))
	for _, tr := range append(batch.Succeeded, batch.Failed...) {
		if res, ok := tr.Value.(models.TestResult); ok {
			results = append(results, res)
			continue
		}
		res := startResult(def, url)
		res.TestType = tr.ID
		results = append(results, settle(res, "", tr.Err))
	}
	return results
}

func (r *Runner) save(url string, out *analyzer.Output) (string, error) {
	hint := filepath.Join("pages", output.Slug(url), out.PathHint)
	return r.Sink.Save(out.Content, hint)
}

// pageGroups restricts the phase's conflict groups to page-scoped tests,
// preserving group membership and execution order.
func pageGroups(phase models.PhaseExecutionPlan, defs map[string]models.TestDefinition) [][]string {
	var groups [][]string
	for _, group := range phase.ConflictGroups {
		var page []string
		for _, id := range group {
			if def, ok := defs[id]; ok && def.Scope == models.ScopePage {
				page = append(page, id)
			}
		}
		if len(page) > 0 {
			groups = append(groups, page)
		}
	}
	return groups
}

// failAll records one failed result per test scheduled for the URL with the
// shared reason. Tests are never silently skipped.
func failAll(groups [][]string, defs map[string]models.TestDefinition, url string, reason error) []models.TestResult {
	var results []models.TestResult
	for _, group := range groups {
		for _, id := range group {
			res := startResult(defs[id], url)
			results = append(results, settle(res, "", reason))
		}
	}
	return results
}

// startResult opens a TestResult for a definition, copying the definition's
// OutputType as the sole classification authority.
func startResult(def models.TestDefinition, url string) models.TestResult {
	return models.TestResult{
		TestType:   def.ID,
		URL:        url,
		Status:     models.StatusPending,
		StartTime:  time.Now(),
		OutputType: def.OutputType,
	}
}

// settle finalizes a result with either an output path or a failure reason.
func settle(res models.TestResult, path string, err error) models.TestResult {
	res.EndTime = time.Now()
	if err != nil {
		res.Status = models.StatusFailed
		res.Err = err
		return res
	}
	res.Status = models.StatusSuccess
	res.OutputPath = path
	return res
}
