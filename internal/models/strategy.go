package models

// PhaseExecutionPlan describes the work authorized for one execution phase.
// Phases are strict barriers: every item in phase N settles before any item
// in phase N+1 is dequeued.
type PhaseExecutionPlan struct {
	Phase          int        // Phase number (ascending)
	SessionTestIDs []string   // Session-scoped tests, in execution order
	PageTestIDs    []string   // Page-scoped tests, in execution order
	MaxConcurrency int        // Worker budget for this phase, always >= 1
	ConflictGroups [][]string // Pairwise non-conflicting partitions of the phase's tests
}

// ExecutionStrategy is the planner's output: an ordered sequence of phase
// plans. Built once per session and immutable thereafter.
type ExecutionStrategy struct {
	Phases []PhaseExecutionPlan
}

// TotalTests returns the number of distinct test ids across all phases.
func (s *ExecutionStrategy) TotalTests() int {
	n := 0
	for _, p := range s.Phases {
		n += len(p.SessionTestIDs) + len(p.PageTestIDs)
	}
	return n
}

// PhaseFor returns the plan for the given phase number, or nil.
func (s *ExecutionStrategy) PhaseFor(phase int) *PhaseExecutionPlan {
	for i := range s.Phases {
		if s.Phases[i].Phase == phase {
			return &s.Phases[i]
		}
	}
	return nil
}
