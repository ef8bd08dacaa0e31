// Package planner turns a set of selected test definitions into an ordered
// execution strategy: one plan per phase, with dependency validation,
// conflict-aware grouping, and a resource-aware concurrency budget.
package planner

import (
	"fmt"
	"sort"

	"github.com/callum/sitecheck/internal/models"
)

const (
	// DefaultBaseConcurrency is the per-phase worker budget before
	// resource-intensive penalties are applied.
	DefaultBaseConcurrency = 4
)

// MissingDependencyError reports a selected test whose declared dependency
// was not also selected. Planning fails before any work item executes.
type MissingDependencyError struct {
	TestID  string
	Missing string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("test %s: dependency %s is not selected", e.TestID, e.Missing)
}

// Planner builds execution strategies from selected test definitions.
// Given the same selection it always produces the same strategy.
type Planner struct {
	baseConcurrency int
}

// New creates a Planner. baseConcurrency <= 0 selects the default budget.
func New(baseConcurrency int) *Planner {
	if baseConcurrency <= 0 {
		baseConcurrency = DefaultBaseConcurrency
	}
	return &Planner{baseConcurrency: baseConcurrency}
}

// Plan validates the selection and produces an ExecutionStrategy with one
// PhaseExecutionPlan per distinct phase value, sorted ascending.
func (p *Planner) Plan(selected []models.TestDefinition) (*models.ExecutionStrategy, error) {
	if len(selected) == 0 {
		return &models.ExecutionStrategy{}, nil
	}

	byID := make(map[string]*models.TestDefinition, len(selected))
	for i := range selected {
		def := &selected[i]
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[def.ID]; dup {
			return nil, fmt.Errorf("test %s: duplicate selection", def.ID)
		}
		byID[def.ID] = def
	}

	if err := validateDependencies(selected, byID); err != nil {
		return nil, err
	}
	if hasDependencyCycle(selected) {
		return nil, fmt.Errorf("circular dependency detected in selected tests")
	}

	// Group by phase.
	phases := make(map[int][]*models.TestDefinition)
	for _, def := range byID {
		phases[def.Phase] = append(phases[def.Phase], def)
	}
	phaseNumbers := make([]int, 0, len(phases))
	for n := range phases {
		phaseNumbers = append(phaseNumbers, n)
	}
	sort.Ints(phaseNumbers)

	strategy := &models.ExecutionStrategy{Phases: make([]models.PhaseExecutionPlan, 0, len(phaseNumbers))}
	for _, n := range phaseNumbers {
		defs := phases[n]
		sortByExecutionOrder(defs)

		plan := models.PhaseExecutionPlan{
			Phase:          n,
			MaxConcurrency: p.phaseConcurrency(defs),
			ConflictGroups: colorConflicts(defs),
		}
		for _, def := range defs {
			switch def.Scope {
			case models.ScopeSession:
				plan.SessionTestIDs = append(plan.SessionTestIDs, def.ID)
			case models.ScopePage:
				plan.PageTestIDs = append(plan.PageTestIDs, def.ID)
			}
		}
		strategy.Phases = append(strategy.Phases, plan)
	}

	return strategy, nil
}

// validateDependencies checks that every declared dependency of a selected
// test is itself selected.
func validateDependencies(selected []models.TestDefinition, byID map[string]*models.TestDefinition) error {
	for _, def := range selected {
		for _, dep := range def.Dependencies {
			if _, ok := byID[dep]; !ok {
				return &MissingDependencyError{TestID: def.ID, Missing: dep}
			}
		}
	}
	return nil
}

// hasDependencyCycle detects cycles in the dependency relation using DFS
// with color marking (white=unvisited, gray=visiting, black=visited).
func hasDependencyCycle(selected []models.TestDefinition) bool {
	graph := make(map[string][]string, len(selected))
	present := make(map[string]bool, len(selected))
	for _, def := range selected {
		present[def.ID] = true
		graph[def.ID] = nil
	}
	for _, def := range selected {
		for _, dep := range def.Dependencies {
			if dep == def.ID {
				return true
			}
			if present[dep] {
				graph[dep] = append(graph[dep], def.ID)
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	colors := make(map[string]int, len(present))

	var dfs func(string) bool
	dfs = func(node string) bool {
		colors[node] = gray
		for _, next := range graph[node] {
			if colors[next] == gray {
				return true
			}
			if colors[next] == white && dfs(next) {
				return true
			}
		}
		colors[node] = black
		return false
	}

	for id := range present {
		if colors[id] == white && dfs(id) {
			return true
		}
	}
	return false
}

// sortByExecutionOrder orders definitions by ExecutionOrder, falling back to
// id so the result is stable across runs.
func sortByExecutionOrder(defs []*models.TestDefinition) {
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].ExecutionOrder != defs[j].ExecutionOrder {
			return defs[i].ExecutionOrder < defs[j].ExecutionOrder
		}
		return defs[i].ID < defs[j].ID
	})
}

// colorConflicts partitions the phase's tests into pairwise non-conflicting
// groups via greedy graph coloring. Tests are visited in execution order and
// assigned to the first group containing no conflicting member; a new group
// opens otherwise. The conflict relation is treated as symmetric.
func colorConflicts(defs []*models.TestDefinition) [][]string {
	byID := make(map[string]*models.TestDefinition, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
	}

	conflicts := func(a, b string) bool {
		return byID[a].ConflictsWithID(b) || byID[b].ConflictsWithID(a)
	}

	var groups [][]string
	for _, def := range defs {
		placed := false
		for gi, group := range groups {
			ok := true
			for _, member := range group {
				if conflicts(def.ID, member) {
					ok = false
					break
				}
			}
			if ok {
				groups[gi] = append(groups[gi], def.ID)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []string{def.ID})
		}
	}
	return groups
}

// phaseConcurrency computes the worker budget for a phase: the base budget
// minus one per resource-intensive test selected in the phase, floored at 1.
func (p *Planner) phaseConcurrency(defs []*models.TestDefinition) int {
	budget := p.baseConcurrency
	for _, def := range defs {
		if def.ResourceIntensive {
			budget--
		}
	}
	if budget < 1 {
		budget = 1
	}
	return budget
}
