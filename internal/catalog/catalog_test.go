package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/callum/sitecheck/internal/models"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestBuiltinsAreValid(t *testing.T) {
	defs := Builtins()
	if len(defs) == 0 {
		t.Fatal("builtin catalog is empty")
	}
	if err := Validate(defs); err != nil {
		t.Fatalf("builtin catalog invalid: %v", err)
	}
}

func TestBuiltinsConflictSymmetry(t *testing.T) {
	byID := make(map[string]models.TestDefinition)
	for _, def := range Builtins() {
		byID[def.ID] = def
	}
	for _, def := range Builtins() {
		for _, other := range def.ConflictsWith {
			peer, ok := byID[other]
			if !ok {
				t.Errorf("test %s conflicts with unknown test %s", def.ID, other)
				continue
			}
			if !peer.ConflictsWithID(def.ID) {
				t.Errorf("conflict %s <-> %s declared only one way", def.ID, other)
			}
		}
	}
}

func TestBuiltinsReturnFreshCopies(t *testing.T) {
	first := Builtins()
	first[0].ID = "mutated"
	if Builtins()[0].ID == "mutated" {
		t.Error("Builtins exposes shared state")
	}
}

func TestLoad_ValidCatalog(t *testing.T) {
	path := writeCatalog(t, `tests:
  - id: inventory
    phase: 1
    scope: session
    output_type: site-wide
  - id: headings
    phase: 2
    scope: page
    output_type: per-page
    execution_order: 1
    dependencies: [inventory]
    resource_intensive: true
`)

	defs, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("loaded %d tests, want 2", len(defs))
	}
	if defs[1].ID != "headings" || !defs[1].ResourceIntensive {
		t.Errorf("second test = %+v", defs[1])
	}
	if len(defs[1].Dependencies) != 1 || defs[1].Dependencies[0] != "inventory" {
		t.Errorf("dependencies = %v", defs[1].Dependencies)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing required field", "tests:\n  - id: x\n    phase: 1\n    scope: page\n"},
		{"bad scope enum", "tests:\n  - id: x\n    phase: 1\n    scope: global\n    output_type: per-page\n"},
		{"bad output enum", "tests:\n  - id: x\n    phase: 1\n    scope: page\n    output_type: everywhere\n"},
		{"uppercase id", "tests:\n  - id: X\n    phase: 1\n    scope: page\n    output_type: per-page\n"},
		{"zero phase", "tests:\n  - id: x\n    phase: 0\n    scope: page\n    output_type: per-page\n"},
		{"unknown field", "tests:\n  - id: x\n    phase: 1\n    scope: page\n    output_type: per-page\n    retries: 3\n"},
		{"empty tests list", "tests: []\n"},
		{"not a catalog", "just: nonsense\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeCatalog(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("error type = %T, want *ValidationError", err)
			}
		})
	}
}

func TestLoad_InvariantViolations(t *testing.T) {
	// Schema-valid but breaks Go-level invariants.
	tests := []struct {
		name    string
		content string
	}{
		{"duplicate ids", `tests:
  - id: x
    phase: 1
    scope: page
    output_type: per-page
  - id: x
    phase: 2
    scope: page
    output_type: per-page
`},
		{"scope output mismatch", `tests:
  - id: x
    phase: 1
    scope: session
    output_type: per-page
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeCatalog(t, tt.content)); err == nil {
				t.Fatal("expected invariant error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSelect(t *testing.T) {
	defs := Builtins()

	all, err := Select(defs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != len(defs) {
		t.Errorf("empty selection returned %d tests, want all %d", len(all), len(defs))
	}

	picked, err := Select(defs, []string{"seo", "a11y", "seo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(picked) != 2 {
		t.Errorf("got %d tests, want 2 (duplicates collapsed)", len(picked))
	}

	if _, err := Select(defs, []string{"does-not-exist"}); err == nil {
		t.Error("expected error for unknown id")
	}
}
