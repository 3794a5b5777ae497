// Package commands implements the CLI commands for the forge build tool.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/forge/internal/app"
	"go.trai.ch/forge/internal/build"
)

// CLI represents the command line interface for forge.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Build(ctx context.Context, opts app.CompileOptions) error
	Run(ctx context.Context, opts app.CompileOptions, args []string) error
	Test(ctx context.Context, opts app.CompileOptions, args []string, noRun bool) error
	Bench(ctx context.Context, opts app.CompileOptions, args []string, noRun bool) error
	Doc(ctx context.Context, opts app.CompileOptions, noDeps bool) error
	Rustc(ctx context.Context, opts app.CompileOptions, args []string) error
	Rustdoc(ctx context.Context, opts app.CompileOptions, args []string) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "forge",
		Short:         "Build, test and run packages and their dependencies",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newTestCmd())
	rootCmd.AddCommand(c.newBenchCmd())
	rootCmd.AddCommand(c.newDocCmd())
	rootCmd.AddCommand(c.newRustcCmd())
	rootCmd.AddCommand(c.newRustdocCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// ExitFailure is the exit code of every forge error.
const ExitFailure = 101

// ExitError asks the process to exit with Code. Silent errors are not
// reported again, the child process already printed its own diagnostics.
type ExitError struct {
	Code   int
	Silent bool
	Err    error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }
