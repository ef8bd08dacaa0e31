package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/callum/sitecheck/internal/catalog"
	"github.com/callum/sitecheck/internal/planner"
)

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a test catalog and selection without executing",
		Long: `Validate loads the test catalog (built-in or --catalog), applies the
--tests selection, and runs the planner. It reports missing dependencies,
scope/output mismatches, duplicate ids, and circular dependencies, then
prints the execution strategy that a run would use.`,
		Args: cobra.NoArgs,
		RunE: validateCommand,
	}

	cmd.Flags().String("catalog", "", "YAML test catalog to validate (default: built-in)")
	cmd.Flags().StringSlice("tests", nil, "Comma-separated test ids to select (default: all)")
	cmd.Flags().Int("concurrency", planner.DefaultBaseConcurrency, "Base per-phase worker budget")

	return cmd
}

func validateCommand(cmd *cobra.Command, args []string) error {
	catalogPath, _ := cmd.Flags().GetString("catalog")

	defs := catalog.Builtins()
	if catalogPath != "" {
		loaded, err := catalog.Load(catalogPath)
		if err != nil {
			return err
		}
		defs = loaded
		fmt.Fprintf(cmd.OutOrStdout(), "Catalog %s: %d test(s), schema OK\n", catalogPath, len(defs))
	} else {
		if err := catalog.Validate(defs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Built-in catalog: %d test(s)\n", len(defs))
	}

	testIDs, _ := cmd.Flags().GetStringSlice("tests")
	selected, err := catalog.Select(defs, testIDs)
	if err != nil {
		return err
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	strategy, err := planner.New(concurrency).Plan(selected)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Selection valid: %d test(s)\n", len(selected))
	printStrategy(cmd, strategy)
	return nil
}
