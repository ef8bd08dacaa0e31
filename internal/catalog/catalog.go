// Package catalog defines the tests available to a session. The built-in
// catalog can be replaced by a YAML file, which is validated against an
// embedded JSON schema before any Go-level invariants are checked.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/callum/sitecheck/internal/models"
)

// ValidationError reports a catalog that failed schema or invariant checks.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid test catalog: %v", e.Err)
	}
	return fmt.Sprintf("invalid test catalog %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Builtins returns the default test catalog. Definitions are returned by
// value so callers can never mutate the canonical set.
func Builtins() []models.TestDefinition {
	return []models.TestDefinition{
		{
			ID:             "sitemap",
			Phase:          1,
			Scope:          models.ScopeSession,
			OutputType:     models.OutputSiteWide,
			ExecutionOrder: 1,
		},
		{
			ID:                "screenshots",
			Phase:             2,
			Scope:             models.ScopePage,
			OutputType:        models.OutputPerPage,
			ExecutionOrder:    1,
			ResourceIntensive: true,
			ConflictsWith:     []string{"content"},
		},
		{
			ID:             "seo",
			Phase:          2,
			Scope:          models.ScopePage,
			OutputType:     models.OutputPerPage,
			ExecutionOrder: 2,
		},
		{
			ID:             "a11y",
			Phase:          2,
			Scope:          models.ScopePage,
			OutputType:     models.OutputPerPage,
			ExecutionOrder: 3,
		},
		{
			ID:             "content",
			Phase:          2,
			Scope:          models.ScopePage,
			OutputType:     models.OutputPerPage,
			ExecutionOrder: 4,
			ConflictsWith:  []string{"screenshots"},
		},
		{
			ID:             "secrets",
			Phase:          2,
			Scope:          models.ScopePage,
			OutputType:     models.OutputPerPage,
			ExecutionOrder: 5,
		},
		{
			ID:             "console",
			Phase:          2,
			Scope:          models.ScopePage,
			OutputType:     models.OutputPerPage,
			ExecutionOrder: 6,
		},
		{
			ID:             "links",
			Phase:          2,
			Scope:          models.ScopePage,
			OutputType:     models.OutputPerPage,
			ExecutionOrder: 7,
		},
	}
}

type catalogFile struct {
	Tests []models.TestDefinition `yaml:"tests"`
}

// Load reads a catalog file, validates it against the embedded schema, then
// applies the Go-level invariants (unique ids, scope/output agreement).
func Load(path string) ([]models.TestDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	if err := validateSchema(data); err != nil {
		return nil, &ValidationError{Path: path, Err: err}
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ValidationError{Path: path, Err: err}
	}
	if err := Validate(file.Tests); err != nil {
		return nil, &ValidationError{Path: path, Err: err}
	}

	return file.Tests, nil
}

// Validate checks catalog-level invariants over a definition set.
func Validate(defs []models.TestDefinition) error {
	seen := make(map[string]bool, len(defs))
	for i := range defs {
		if err := defs[i].Validate(); err != nil {
			return err
		}
		if seen[defs[i].ID] {
			return fmt.Errorf("test %s: duplicate id", defs[i].ID)
		}
		seen[defs[i].ID] = true
	}
	return nil
}

// Select resolves user-selected test ids against the catalog. An empty
// selection means the whole catalog. Unknown ids are configuration errors.
func Select(defs []models.TestDefinition, ids []string) ([]models.TestDefinition, error) {
	if len(ids) == 0 {
		out := make([]models.TestDefinition, len(defs))
		copy(out, defs)
		return out, nil
	}

	byID := make(map[string]models.TestDefinition, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
	}

	out := make([]models.TestDefinition, 0, len(ids))
	picked := make(map[string]bool, len(ids))
	for _, id := range ids {
		def, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown test %q", id)
		}
		if picked[id] {
			continue
		}
		picked[id] = true
		out = append(out, def)
	}
	return out, nil
}
