package models

import "testing"

func TestExecutionStrategy(t *testing.T) {
	s := &ExecutionStrategy{Phases: []PhaseExecutionPlan{
		{Phase: 1, SessionTestIDs: []string{"sitemap"}},
		{Phase: 2, PageTestIDs: []string{"seo", "a11y", "screenshots"}},
	}}

	if got := s.TotalTests(); got != 4 {
		t.Errorf("TotalTests() = %d, want 4", got)
	}

	if p := s.PhaseFor(2); p == nil || len(p.PageTestIDs) != 3 {
		t.Errorf("PhaseFor(2) = %+v", p)
	}
	if p := s.PhaseFor(9); p != nil {
		t.Errorf("PhaseFor(9) = %+v, want nil", p)
	}
}
