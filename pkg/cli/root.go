// Package cli provides the htmlrunner commands for running table driven
// browser tests and inspecting their results.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root htmlrunner command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "htmlrunner",
		Short: "Table driven browser test runner",
		Long: `htmlrunner opens an HTML page holding a table of (command, locator, value)
rows and executes every row as a step against a live browser session.`,
		SilenceUsage: true,
	}

	// Add subcommands
	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewCommandsCmd())
	rootCmd.AddCommand(NewViewCmd())
	rootCmd.AddCommand(NewVerifyCmd())
	rootCmd.AddCommand(NewDiffCmd())

	return rootCmd
}

// Execute runs the root command. Cancelling ctx aborts a running test.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
