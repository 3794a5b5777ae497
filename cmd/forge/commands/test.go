package commands

import "github.com/spf13/cobra"

func (c *CLI) newTestCmd() *cobra.Command {
	var (
		flags compileFlags
		noRun bool
	)
	cmd := &cobra.Command{
		Use:   "test [options] [--] [<args>...]",
		Short: "Execute all unit and integration tests of a local package",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Test(cmd.Context(), flags.options(cmd), args, noRun)
		},
	}
	flags.bind(cmd)
	flags.bindSelection(cmd)
	cmd.Flags().BoolVar(&noRun, "no-run", false, "Compile, but don't run tests")
	return cmd
}

func (c *CLI) newBenchCmd() *cobra.Command {
	var (
		flags compileFlags
		noRun bool
	)
	cmd := &cobra.Command{
		Use:   "bench [options] [--] [<args>...]",
		Short: "Execute all benchmarks of a local package",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Bench(cmd.Context(), flags.options(cmd), args, noRun)
		},
	}
	flags.bind(cmd)
	flags.bindSelection(cmd)
	cmd.Flags().BoolVar(&noRun, "no-run", false, "Compile, but don't run benchmarks")
	return cmd
}
