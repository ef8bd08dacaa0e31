package pipeline

import (
	"fmt"
	"sync"

	"github.com/callum/sitecheck/internal/browser"
)

// engineGate centralizes the shared engine's health policy for one phase:
// health is consulted before every context acquisition, the engine is
// restarted at most once per phase, and a second loss makes the phase fatal.
// The generation counter advances on every restart so failures of contexts
// opened against a dead process stay classified as resource loss even after
// another worker has already restarted the engine.
type engineGate struct {
	mu         sync.Mutex
	engine     browser.Engine
	restarted  bool
	fatal      bool
	generation int
}

func newEngineGate(engine browser.Engine) *engineGate {
	return &engineGate{engine: engine}
}

// acquire opens a fresh rendering context, restarting the engine first if it
// has become unhealthy. Once the phase's single restart is spent, further
// losses fail fast with ErrResourceLost. The returned generation identifies
// the engine process the context belongs to.
func (g *engineGate) acquire() (browser.Context, int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.fatal {
		return nil, g.generation, ErrResourceLost
	}
	if !g.engine.Healthy() {
		if g.restarted {
			g.fatal = true
			return nil, g.generation, ErrResourceLost
		}
		if err := g.engine.Restart(); err != nil {
			g.fatal = true
			return nil, g.generation, fmt.Errorf("%w: restart failed: %v", ErrResourceLost, err)
		}
		g.restarted = true
		g.generation++
	}

	pctx, err := g.engine.NewContext()
	if err != nil {
		return nil, g.generation, fmt.Errorf("%w: %v", ErrResourceLost, err)
	}
	return pctx, g.generation, nil
}

// lostTo reports whether err was caused by losing the engine rather than by
// the page under test. A restart after the context's acquisition invalidates
// the context, so a newer generation counts as a loss even when the engine
// is healthy again by the time the failure settles.
func (g *engineGate) lostTo(err error, generation int) bool {
	if err == nil {
		return false
	}
	g.mu.Lock()
	current := g.generation
	g.mu.Unlock()
	return current != generation || !g.engine.Healthy()
}

// isFatal reports whether the phase exhausted its restart budget.
func (g *engineGate) isFatal() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fatal
}
