package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/forge/internal/app"
)

// compileFlags are the options every compiling command accepts.
type compileFlags struct {
	manifestPath      string
	verbose           bool
	quiet             bool
	color             string
	jobs              int
	target            string
	features          string
	noDefaultFeatures bool
	release           bool

	packages []string
	lib      bool
	bins     []string
	examples []string
	tests    []string
	benches  []string
}

func (f *compileFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVarP(&f.jobs, "jobs", "j", 0, "Number of parallel jobs, defaults to # of CPUs")
	fs.BoolVar(&f.release, "release", false, "Build artifacts in release mode, with optimizations")
	fs.StringVar(&f.features, "features", "", "Space-separated list of features to also build")
	fs.BoolVar(&f.noDefaultFeatures, "no-default-features", false, "Do not build the `default` feature")
	fs.StringVar(&f.target, "target", "", "Build for the target triple")
	fs.StringVar(&f.manifestPath, "manifest-path", "", "Path to the manifest to compile")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Use verbose output")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "No output printed to stdout")
	fs.StringVar(&f.color, "color", "auto", "Coloring: auto, always, never")
}

// bindSelection adds the package and target selection flags.
func (f *compileFlags) bindSelection(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringArrayVarP(&f.packages, "package", "p", nil, "Package to build")
	fs.BoolVar(&f.lib, "lib", false, "Build only this package's library")
	fs.StringArrayVar(&f.bins, "bin", nil, "Build only the specified binary")
	fs.StringArrayVar(&f.examples, "example", nil, "Build only the specified example")
	fs.StringArrayVar(&f.tests, "test", nil, "Build only the specified test target")
	fs.StringArrayVar(&f.benches, "bench", nil, "Build only the specified benchmark target")
}

func (f *compileFlags) options(cmd *cobra.Command) app.CompileOptions {
	opts := app.CompileOptions{
		GlobalOptions: app.GlobalOptions{
			ManifestPath: f.manifestPath,
			Verbose:      f.verbose,
			Quiet:        f.quiet,
			Color:        f.color,
		},
		Target:            f.target,
		Features:          f.features,
		NoDefaultFeatures: f.noDefaultFeatures,
		Release:           f.release,
		Packages:          f.packages,
		Lib:               f.lib,
		Bins:              f.bins,
		Examples:          f.examples,
		Tests:             f.tests,
		Benches:           f.benches,
	}
	if cmd.Flags().Changed("jobs") {
		jobs := f.jobs
		opts.Jobs = &jobs
	}
	return opts
}
