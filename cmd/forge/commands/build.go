package commands

import "github.com/spf13/cobra"

func (c *CLI) newBuildCmd() *cobra.Command {
	var flags compileFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the current package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Build(cmd.Context(), flags.options(cmd))
		},
	}
	flags.bind(cmd)
	flags.bindSelection(cmd)
	return cmd
}
