// Package commands wires the CLI surface: project scaffolding, statement
// import, classification, splits and rule management.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tallyhq/tally/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "tally",
		Short:   "Bank statement ingestion and transaction classification",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newClassifyCommand())
	rootCmd.AddCommand(newSplitCommand())
	rootCmd.AddCommand(newUnsplitCommand())
	rootCmd.AddCommand(newRulesCommand())

	return rootCmd
}
