package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for sitecheck
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitecheck",
		Short: "Parallel website test runner",
		Long: `Sitecheck discovers the pages of a website and runs a configurable
battery of checks against them: screenshots, SEO, accessibility, content
extraction, secret scanning and more.

Tests are planned into ordered phases, executed by a bounded worker pool
with one rendering context per page, and aggregated into per-page and
site-wide reports.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewTestsCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
