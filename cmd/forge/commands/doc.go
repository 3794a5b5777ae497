package commands

import "github.com/spf13/cobra"

func (c *CLI) newDocCmd() *cobra.Command {
	var (
		flags  compileFlags
		noDeps bool
	)
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Build a package's documentation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Doc(cmd.Context(), flags.options(cmd), noDeps)
		},
	}
	flags.bind(cmd)
	flags.bindSelection(cmd)
	cmd.Flags().BoolVar(&noDeps, "no-deps", false, "Don't build documentation for dependencies")
	return cmd
}

func (c *CLI) newRustdocCmd() *cobra.Command {
	var flags compileFlags
	cmd := &cobra.Command{
		Use:   "rustdoc [options] [--] [<args>...]",
		Short: "Build a package's documentation, using specified custom flags",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Rustdoc(cmd.Context(), flags.options(cmd), args)
		},
	}
	flags.bind(cmd)
	flags.bindSelection(cmd)
	return cmd
}

func (c *CLI) newRustcCmd() *cobra.Command {
	var flags compileFlags
	cmd := &cobra.Command{
		Use:   "rustc [options] [--] [<args>...]",
		Short: "Compile a package and all of its dependencies, passing args to the final compiler invocation",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Rustc(cmd.Context(), flags.options(cmd), args)
		},
	}
	flags.bind(cmd)
	flags.bindSelection(cmd)
	return cmd
}
