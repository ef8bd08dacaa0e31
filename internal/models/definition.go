package models

import "fmt"

// Scope describes whether a test runs once per session or once per page.
type Scope string

// Test scope constants
const (
	ScopeSession Scope = "session" // Runs once for the whole session
	ScopePage    Scope = "page"    // Runs once per discovered page
)

// OutputType classifies where a test's results belong in the final report.
type OutputType string

// Output classification constants
const (
	OutputPerPage  OutputType = "per-page"  // Result attaches to the producing page
	OutputSiteWide OutputType = "site-wide" // Result attaches to the synthetic site-wide bucket
)

// TestDefinition describes one available test in the catalog.
// Definitions are loaded once and treated as read-only for the session.
type TestDefinition struct {
	ID                string     `yaml:"id" json:"id"`                                 // Unique test identifier
	Phase             int        `yaml:"phase" json:"phase"`                           // Execution phase (total order, 1-based)
	Scope             Scope      `yaml:"scope" json:"scope"`                           // session or page
	ExecutionOrder    int        `yaml:"execution_order" json:"execution_order"`       // Tie-break within a phase
	Dependencies      []string   `yaml:"dependencies" json:"dependencies"`             // Test ids that must also be selected
	ConflictsWith     []string   `yaml:"conflicts_with" json:"conflicts_with"`         // Test ids that must not run concurrently
	ResourceIntensive bool       `yaml:"resource_intensive" json:"resource_intensive"` // Reduces the phase concurrency budget
	OutputType        OutputType `yaml:"output_type" json:"output_type"`               // Sole authority for result classification
}

// Validate checks the definition's internal invariants.
// OutputType must agree with Scope: session tests produce site-wide output,
// page tests produce per-page output.
func (d *TestDefinition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("test definition has empty id")
	}
	if d.Phase <= 0 {
		return fmt.Errorf("test %s: phase must be > 0, got %d", d.ID, d.Phase)
	}
	switch d.Scope {
	case ScopeSession:
		if d.OutputType != OutputSiteWide {
			return fmt.Errorf("test %s: session scope requires site-wide output, got %q", d.ID, d.OutputType)
		}
	case ScopePage:
		if d.OutputType != OutputPerPage {
			return fmt.Errorf("test %s: page scope requires per-page output, got %q", d.ID, d.OutputType)
		}
	default:
		return fmt.Errorf("test %s: invalid scope %q", d.ID, d.Scope)
	}
	for _, dep := range d.Dependencies {
		if dep == d.ID {
			return fmt.Errorf("test %s: depends on itself", d.ID)
		}
	}
	return nil
}

// ConflictsWithID reports whether the definition declares a conflict with id.
func (d *TestDefinition) ConflictsWithID(id string) bool {
	for _, c := range d.ConflictsWith {
		if c == id {
			return true
		}
	}
	return false
}
