package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/callum/sitecheck/internal/analyzer"
	"github.com/callum/sitecheck/internal/browser"
	"github.com/callum/sitecheck/internal/models"
	"github.com/callum/sitecheck/internal/output"
	"github.com/callum/sitecheck/internal/pool"
)

// Logger receives execution progress. Implementations must be safe for
// concurrent use; the orchestrator never requires logging for correctness.
type Logger interface {
	LogPhaseStart(phase int, items int)
	LogPhaseComplete(phase int, duration time.Duration, results []models.TestResult)
	LogTestResult(result models.TestResult)
	LogProgress(phase, completed, total int)
}

// Orchestrator drives an execution strategy phase by phase. Phases are
// strict barriers: every item of phase N settles before phase N+1 starts.
type Orchestrator struct {
	engine   browser.Engine
	registry *analyzer.Registry
	sink     output.Sink
	logger   Logger
	runner   *Runner
}

// NewOrchestrator wires the orchestrator. logger may be nil.
func NewOrchestrator(engine browser.Engine, registry *analyzer.Registry, sink output.Sink, logger Logger, navTimeout time.Duration) *Orchestrator {
	if engine == nil {
		panic("rendering engine cannot be nil")
	}
	return &Orchestrator{
		engine:   engine,
		registry: registry,
		sink:     sink,
		logger:   logger,
		runner:   &Runner{Registry: registry, Sink: sink, NavTimeout: navTimeout},
	}
}

// Run executes every phase of the strategy in order and returns all settled
// results. A PhaseFatalError skips the remaining phases; the results
// gathered so far are still returned so a partial summary can be built.
func (o *Orchestrator) Run(ctx context.Context, strategy *models.ExecutionStrategy, defs []models.TestDefinition, session analyzer.Session) ([]models.TestResult, error) {
	if strategy == nil {
		return nil, fmt.Errorf("strategy cannot be nil")
	}

	byID := make(map[string]models.TestDefinition, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
	}

	var all []models.TestResult
	for _, phase := range strategy.Phases {
		phaseResults, err := o.runPhase(ctx, phase, byID, session)
		all = append(all, phaseResults...)
		if err != nil {
			return all, err
		}
		if err := ctx.Err(); err != nil {
			return all, err
		}
	}
	return all, nil
}

func (o *Orchestrator) runPhase(ctx context.Context, phase models.PhaseExecutionPlan, defs map[string]models.TestDefinition, session analyzer.Session) ([]models.TestResult, error) {
	sessionItems := o.sessionItems(phase, defs, session)

	pageItemCount := 0
	if len(phase.PageTestIDs) > 0 {
		pageItemCount = len(session.URLs)
	}
	totalItems := len(sessionItems) + pageItemCount
	if totalItems == 0 {
		return nil, nil
	}

	if o.logger != nil {
		o.logger.LogPhaseStart(phase.Phase, totalItems)
	}
	phaseStart := time.Now()

	var results []models.TestResult

	progress := func(offset int) pool.ProgressFunc {
		return func(completed, total int) {
			if o.logger != nil {
				o.logger.LogProgress(phase.Phase, offset+completed, totalItems)
			}
		}
	}

	// Session-scoped batch settles first, then the page batch; both belong
	// to the same phase barrier.
	if len(sessionItems) > 0 {
		batch := pool.Execute(ctx, sessionItems, phase.MaxConcurrency, progress(0))
		for _, tr := range append(batch.Succeeded, batch.Failed...) {
			if res, ok := tr.Value.(models.TestResult); ok {
				results = append(results, res)
				continue
			}
			// A cancelled or panicked item settles without a value;
			// synthesize the failure so the test still appears in the
			// summary instead of silently vanishing.
			res := startResult(defs[tr.ID], "")
			results = append(results, settle(res, "", tr.Err))
		}
	}

	var phaseErr error
	if pageItemCount > 0 {
		gate := newEngineGate(o.engine)
		pageResults, err := o.runner.RunPages(ctx, phase, defs, session.URLs, gate, progress(len(sessionItems)))
		results = append(results, pageResults...)
		phaseErr = err
	}

	if o.logger != nil {
		for _, res := range results {
			o.logger.LogTestResult(res)
		}
		o.logger.LogPhaseComplete(phase.Phase, time.Since(phaseStart), results)
	}

	return results, phaseErr
}

// sessionItems builds one work item per session-scoped test in the phase.
func (o *Orchestrator) sessionItems(phase models.PhaseExecutionPlan, defs map[string]models.TestDefinition, session analyzer.Session) []pool.WorkItem {
	items := make([]pool.WorkItem, 0, len(phase.SessionTestIDs))
	for _, id := range phase.SessionTestIDs {
		def := defs[id]
		items = append(items, pool.WorkItem{
			ID:          id,
			DisplayName: id,
			Execute: func(ctx context.Context) (any, error) {
				res := startResult(def, "")
				sa, ok := o.registry.Session(def.ID)
				if !ok {
					failed := settle(res, "", fmt.Errorf("no analyzer registered for test %s", def.ID))
					return failed, failed.Err
				}
				out, err := sa.Run(ctx, session)
				if err != nil {
					return settle(res, "", err), err
				}
				path, err := o.sink.Save(out.Content, filepath.Join("site", out.PathHint))
				settled := settle(res, path, err)
				return settled, settled.Err
			},
		})
	}
	return items
}
