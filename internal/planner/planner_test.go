package planner

import (
	"errors"
	"reflect"
	"testing"

	"github.com/callum/sitecheck/internal/models"
)

func pageTest(id string, phase, order int) models.TestDefinition {
	return models.TestDefinition{
		ID:             id,
		Phase:          phase,
		Scope:          models.ScopePage,
		OutputType:     models.OutputPerPage,
		ExecutionOrder: order,
	}
}

func sessionTest(id string, phase, order int) models.TestDefinition {
	return models.TestDefinition{
		ID:             id,
		Phase:          phase,
		Scope:          models.ScopeSession,
		OutputType:     models.OutputSiteWide,
		ExecutionOrder: order,
	}
}

func TestPlan_MissingDependency(t *testing.T) {
	x := pageTest("x", 1, 1)
	x.Dependencies = []string{"y"}

	_, err := New(4).Plan([]models.TestDefinition{x})
	if err == nil {
		t.Fatal("expected MissingDependency error")
	}

	var missing *MissingDependencyError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingDependencyError, got %T: %v", err, err)
	}
	if missing.TestID != "x" || missing.Missing != "y" {
		t.Errorf("got (%s, %s), want (x, y)", missing.TestID, missing.Missing)
	}
}

func TestPlan_DependencySatisfied(t *testing.T) {
	x := pageTest("x", 2, 1)
	x.Dependencies = []string{"y"}
	y := sessionTest("y", 1, 1)

	strategy, err := New(4).Plan([]models.TestDefinition{x, y})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(strategy.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(strategy.Phases))
	}
}

func TestPlan_PhasesSortedAscending(t *testing.T) {
	strategy, err := New(4).Plan([]models.TestDefinition{
		pageTest("c", 3, 1),
		pageTest("a", 1, 1),
		pageTest("b", 2, 1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []int
	for _, p := range strategy.Phases {
		got = append(got, p.Phase)
	}
	if !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("phases = %v, want [1 2 3]", got)
	}
}

func TestPlan_ScopeSplit(t *testing.T) {
	strategy, err := New(4).Plan([]models.TestDefinition{
		sessionTest("inventory", 1, 1),
		pageTest("seo", 1, 2),
		pageTest("a11y", 1, 3),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	phase := strategy.Phases[0]
	if !reflect.DeepEqual(phase.SessionTestIDs, []string{"inventory"}) {
		t.Errorf("session tests = %v", phase.SessionTestIDs)
	}
	if !reflect.DeepEqual(phase.PageTestIDs, []string{"seo", "a11y"}) {
		t.Errorf("page tests = %v", phase.PageTestIDs)
	}
}

func TestPlan_ConflictColoring(t *testing.T) {
	a := pageTest("a", 1, 1)
	a.ConflictsWith = []string{"b"}
	b := pageTest("b", 1, 2)
	c := pageTest("c", 1, 3)

	strategy, err := New(4).Plan([]models.TestDefinition{a, b, c})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	groups := strategy.Phases[0].ConflictGroups
	if len(groups) != 2 {
		t.Fatalf("expected 2 conflict groups, got %v", groups)
	}
	// a goes first; c joins a's group; b opens a new group.
	if !reflect.DeepEqual(groups[0], []string{"a", "c"}) {
		t.Errorf("group 0 = %v, want [a c]", groups[0])
	}
	if !reflect.DeepEqual(groups[1], []string{"b"}) {
		t.Errorf("group 1 = %v, want [b]", groups[1])
	}
}

func TestPlan_ConflictRelationIsSymmetric(t *testing.T) {
	// Only b declares the conflict; a and b must still be split.
	a := pageTest("a", 1, 1)
	b := pageTest("b", 1, 2)
	b.ConflictsWith = []string{"a"}

	strategy, err := New(4).Plan([]models.TestDefinition{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, group := range strategy.Phases[0].ConflictGroups {
		seen := make(map[string]bool)
		for _, id := range group {
			seen[id] = true
		}
		if seen["a"] && seen["b"] {
			t.Fatalf("conflicting tests a and b share group %v", group)
		}
	}
}

func TestPlan_ConcurrencyBudget(t *testing.T) {
	tests := []struct {
		name      string
		base      int
		intensive int
		want      int
	}{
		{"no penalty", 4, 0, 4},
		{"one intensive test", 4, 1, 3},
		{"floored at one", 2, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var defs []models.TestDefinition
			defs = append(defs, pageTest("plain", 1, 0))
			for i := 0; i < tt.intensive; i++ {
				d := pageTest(string(rune('a'+i)), 1, i+1)
				d.ResourceIntensive = true
				defs = append(defs, d)
			}

			strategy, err := New(tt.base).Plan(defs)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := strategy.Phases[0].MaxConcurrency; got != tt.want {
				t.Errorf("MaxConcurrency = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPlan_Deterministic(t *testing.T) {
	defs := []models.TestDefinition{
		pageTest("seo", 2, 2),
		pageTest("a11y", 2, 3),
		sessionTest("inventory", 1, 1),
		pageTest("content", 2, 4),
	}
	defs[0].ConflictsWith = []string{"content"}

	first, err := New(4).Plan(defs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := New(4).Plan(defs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("plan is not deterministic:\nfirst: %+v\nagain: %+v", first, again)
		}
	}
}

func TestPlan_CircularDependency(t *testing.T) {
	a := pageTest("a", 1, 1)
	a.Dependencies = []string{"b"}
	b := pageTest("b", 1, 2)
	b.Dependencies = []string{"a"}

	if _, err := New(4).Plan([]models.TestDefinition{a, b}); err == nil {
		t.Fatal("expected circular dependency error")
	}
}

func TestPlan_ScopeOutputMismatch(t *testing.T) {
	bad := models.TestDefinition{
		ID:         "bad",
		Phase:      1,
		Scope:      models.ScopeSession,
		OutputType: models.OutputPerPage,
	}
	if _, err := New(4).Plan([]models.TestDefinition{bad}); err == nil {
		t.Fatal("expected scope/output mismatch error")
	}
}

func TestPlan_DuplicateSelection(t *testing.T) {
	if _, err := New(4).Plan([]models.TestDefinition{pageTest("a", 1, 1), pageTest("a", 1, 2)}); err == nil {
		t.Fatal("expected duplicate selection error")
	}
}

func TestPlan_EmptySelection(t *testing.T) {
	strategy, err := New(4).Plan(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(strategy.Phases) != 0 {
		t.Errorf("expected empty strategy, got %d phases", len(strategy.Phases))
	}
}
