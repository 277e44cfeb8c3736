package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/htmlrunner/htmlrunner/pkg/commands"
)

// NewCommandsCmd creates the commands command
func NewCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the commands test tables can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := commands.NewRegistry(commands.DefaultOptions())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range registry.Commands() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}
