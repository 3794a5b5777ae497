// Package app implements the application layer for forge.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/compile"
	"go.trai.ch/zerr"
)

// OutputSetter is implemented by orchestrators that copy compiler
// diagnostics to a writer.
type OutputSetter interface {
	SetOutput(w io.Writer)
}

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	sources      ports.SourceLoaderFactory
	resolver     ports.DependencyResolver
	manifests    ports.ManifestLoader
	executor     ports.Executor
	orchestrator ports.Orchestrator
	telemetry    ports.Telemetry
	logger       ports.Logger

	cwd    string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	sources ports.SourceLoaderFactory,
	resolver ports.DependencyResolver,
	manifests ports.ManifestLoader,
	executor ports.Executor,
	orchestrator ports.Orchestrator,
	telemetry ports.Telemetry,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		sources:      sources,
		resolver:     resolver,
		manifests:    manifests,
		executor:     executor,
		orchestrator: orchestrator,
		telemetry:    telemetry,
		logger:       log,
		stdin:        os.Stdin,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}
}

// WithWorkDir makes the App discover configuration and manifests from dir
// instead of the process working directory.
func (a *App) WithWorkDir(dir string) *App {
	a.cwd = dir
	return a
}

// WithStdio replaces the streams handed to executed programs.
func (a *App) WithStdio(stdin io.Reader, stdout, stderr io.Writer) *App {
	a.stdin, a.stdout, a.stderr = stdin, stdout, stderr
	return a
}

// GlobalOptions are accepted by every compiling command.
type GlobalOptions struct {
	ManifestPath string
	Verbose      bool
	Quiet        bool
	Color        string
}

// CompileOptions are the flags shared by the compiling commands.
type CompileOptions struct {
	GlobalOptions

	Jobs              *int
	Target            string
	Features          string
	NoDefaultFeatures bool
	Release           bool
	Packages          []string

	Lib      bool
	Bins     []string
	Examples []string
	Tests    []string
	Benches  []string
}

func (o CompileOptions) filter() domain.CompileFilter {
	return domain.NewCompileFilter(o.Lib, o.Bins, o.Tests, o.Examples, o.Benches)
}

// invocation is the per-command state: the loaded configuration and a
// pipeline bound to its source loader.
type invocation struct {
	manifestPath string
	pipeline     *compile.Pipeline
	opts         compile.Options
}

func (a *App) prepare(opts CompileOptions, mode domain.CompileMode) (*invocation, error) {
	if err := a.configureOutput(opts.GlobalOptions); err != nil {
		return nil, err
	}

	cwd := a.cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, zerr.Wrap(err, "failed to get current working directory")
		}
		cwd = wd
	}

	cfg, err := a.configLoader.Load(cwd)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	manifestPath, err := a.manifests.FindRootManifest(opts.ManifestPath, cwd)
	if err != nil {
		return nil, err
	}

	loader, err := a.sources.ForConfig(cfg)
	if err != nil {
		return nil, err
	}

	if setter, ok := a.orchestrator.(OutputSetter); ok {
		setter.SetOutput(a.stderr)
	}
	pipeline := compile.New(a.resolver, loader, a.orchestrator, a.manifests, a.logger)
	pipeline.SetStdio(a.stdin, a.stdout, a.stderr)

	return &invocation{
		manifestPath: manifestPath,
		pipeline:     pipeline,
		opts: compile.Options{
			Config:            cfg,
			Jobs:              opts.Jobs,
			Target:            opts.Target,
			Features:          opts.Features,
			NoDefaultFeatures: opts.NoDefaultFeatures,
			Spec:              opts.Packages,
			Filter:            opts.filter(),
			ExecEngine:        a.executor,
			Release:           opts.Release,
			Mode:              mode,
		},
	}, nil
}

func (a *App) configureOutput(opts GlobalOptions) error {
	if opts.Verbose && opts.Quiet {
		return zerr.New("cannot set both --verbose and --quiet")
	}
	switch {
	case opts.Verbose:
		a.logger.SetVerbosity(domain.VerbosityVerbose)
	case opts.Quiet:
		a.logger.SetVerbosity(domain.VerbosityQuiet)
	default:
		a.logger.SetVerbosity(domain.VerbosityNormal)
	}

	color, ok := domain.ParseColorChoice(opts.Color)
	if !ok {
		return zerr.New(fmt.Sprintf("argument for --color must be auto, always, or never, but found `%s`", opts.Color))
	}
	a.logger.SetColor(color)
	return nil
}

func (a *App) finish() {
	if err := a.telemetry.Close(); err != nil {
		a.logger.Debug("failed to close progress recording: " + err.Error())
	}
}

// Build compiles the selected targets.
func (a *App) Build(ctx context.Context, opts CompileOptions) error {
	inv, err := a.prepare(opts, domain.ModeBuild())
	if err != nil {
		return err
	}
	defer a.finish()

	_, err = inv.pipeline.Compile(ctx, inv.manifestPath, inv.opts)
	return err
}

// Run builds the single executable of the root package and runs it with args.
// A nonzero exit of the program is returned as the unwrapped *domain.ProcessError.
func (a *App) Run(ctx context.Context, opts CompileOptions, args []string) error {
	inv, err := a.prepare(opts, domain.ModeBuild())
	if err != nil {
		return err
	}
	defer a.finish()

	return inv.pipeline.Run(ctx, inv.manifestPath, inv.opts, args)
}

// Test builds the test harnesses and runs them followed by the doc tests.
func (a *App) Test(ctx context.Context, opts CompileOptions, args []string, noRun bool) error {
	inv, err := a.prepare(opts, domain.ModeTest())
	if err != nil {
		return err
	}
	defer a.finish()

	return inv.pipeline.RunTests(ctx, inv.manifestPath, inv.opts, args, noRun)
}

// Bench builds the bench harnesses and runs them.
func (a *App) Bench(ctx context.Context, opts CompileOptions, args []string, noRun bool) error {
	inv, err := a.prepare(opts, domain.ModeBench())
	if err != nil {
		return err
	}
	defer a.finish()

	return inv.pipeline.RunBenches(ctx, inv.manifestPath, inv.opts, args, noRun)
}

// Doc generates documentation, including dependencies unless noDeps is set.
func (a *App) Doc(ctx context.Context, opts CompileOptions, noDeps bool) error {
	inv, err := a.prepare(opts, domain.ModeDoc(!noDeps))
	if err != nil {
		return err
	}
	defer a.finish()

	_, err = inv.pipeline.Compile(ctx, inv.manifestPath, inv.opts)
	return err
}

// Rustc compiles the selected target passing args to the final compiler invocation.
func (a *App) Rustc(ctx context.Context, opts CompileOptions, args []string) error {
	inv, err := a.prepare(opts, domain.ModeBuild())
	if err != nil {
		return err
	}
	defer a.finish()

	inv.opts.TargetRustcArgs = args
	_, err = inv.pipeline.Compile(ctx, inv.manifestPath, inv.opts)
	return err
}

// Rustdoc documents the selected target passing args to the doc generator.
func (a *App) Rustdoc(ctx context.Context, opts CompileOptions, args []string) error {
	inv, err := a.prepare(opts, domain.ModeDoc(false))
	if err != nil {
		return err
	}
	defer a.finish()

	inv.opts.TargetRustdocArgs = args
	_, err = inv.pipeline.Compile(ctx, inv.manifestPath, inv.opts)
	return err
}
