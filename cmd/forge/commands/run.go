package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/forge/internal/core/domain"
)

func (c *CLI) newRunCmd() *cobra.Command {
	var (
		flags   compileFlags
		bin     string
		example string
	)
	cmd := &cobra.Command{
		Use:   "run [options] [--] [<args>...]",
		Short: "Build and execute the package's main binary",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options(cmd)
			if bin != "" {
				opts.Bins = []string{bin}
			}
			if example != "" {
				opts.Examples = []string{example}
			}

			err := c.app.Run(cmd.Context(), opts, args)
			// Only the program's own exit status is forwarded, failures of
			// compiler processes are forge errors.
			if perr, ok := err.(*domain.ProcessError); ok && perr.Spawned() { //nolint:errorlint // wrapped process errors are compiler failures
				code := *perr.Exit
				// Programs killed by a signal have no exit code.
				if code < 0 {
					code = ExitFailure
				}
				return &ExitError{Code: code, Silent: opts.Quiet, Err: err}
			}
			return err
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&bin, "bin", "", "Name of the bin target to run")
	cmd.Flags().StringVar(&example, "example", "", "Name of the example target to run")
	cmd.MarkFlagsMutuallyExclusive("bin", "example")
	return cmd
}
