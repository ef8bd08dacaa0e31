package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/callum/sitecheck/internal/catalog"
)

// NewTestsCommand creates the tests command
func NewTestsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tests",
		Short: "List the available tests",
		Args:  cobra.NoArgs,
		RunE:  testsCommand,
	}

	cmd.Flags().String("catalog", "", "YAML test catalog to list (default: built-in)")

	return cmd
}

func testsCommand(cmd *cobra.Command, args []string) error {
	catalogPath, _ := cmd.Flags().GetString("catalog")

	defs := catalog.Builtins()
	if catalogPath != "" {
		loaded, err := catalog.Load(catalogPath)
		if err != nil {
			return err
		}
		defs = loaded
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPHASE\tSCOPE\tOUTPUT\tDEPENDS ON\tCONFLICTS WITH")
	for _, def := range defs {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			def.ID, def.Phase, def.Scope, def.OutputType,
			orDash(strings.Join(def.Dependencies, ",")),
			orDash(strings.Join(def.ConflictsWith, ",")))
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
