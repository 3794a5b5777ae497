package compile

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

// Run builds the single executable selected by opts and runs it with args.
// A process error is returned unchanged so callers can forward its exit code.
func (p *Pipeline) Run(ctx context.Context, manifestPath string, opts Options, args []string) error {
	root, err := p.loadRoot(manifestPath)
	if err != nil {
		return err
	}
	if err := checkExecutables(root, opts.Filter); err != nil {
		return err
	}

	compilation, err := p.CompilePkg(ctx, root, nil, opts)
	if err != nil {
		return err
	}

	var exe string
	switch {
	case len(compilation.Binaries) > 0:
		exe = compilation.Binaries[0]
	case len(compilation.Examples) > 0:
		exe = compilation.Examples[0]
	default:
		return domain.ErrNoBinTarget
	}

	process := p.targetProcess(compilation, exe, root).Arg(args...)
	process.Dir = opts.Config.Cwd()
	p.logger.Status("Running", process.String())
	return opts.ExecEngine.Exec(ctx, process)
}

// checkExecutables fails unless the filter selects exactly one executable.
// An explicit filter naming nothing runnable is left to target selection.
func checkExecutables(root *domain.Package, filter domain.CompileFilter) error {
	targets := root.Targets()

	var count int
	for i := range targets {
		t := &targets[i]
		if t.IsLib() || t.IsCustomBuild() {
			continue
		}
		if (filter.IsEverything() && t.IsBin()) || (filter.IsSpecific() && filter.Matches(t)) {
			count++
		}
	}

	switch {
	case count == 0 && filter.IsEverything():
		return domain.ErrNoBinTarget
	case count > 1 && filter.IsEverything():
		return domain.ErrAmbiguousExecutable
	case count > 1:
		return domain.ErrMultipleExecutables
	}
	return nil
}

// RunTests builds the test harnesses selected by opts and runs them in order,
// followed by the doc tests of every built library. It stops at the first
// failure.
func (p *Pipeline) RunTests(ctx context.Context, manifestPath string, opts Options, args []string, noRun bool) error {
	compilation, err := p.Compile(ctx, manifestPath, opts)
	if err != nil || noRun {
		return err
	}

	tests := slices.Clone(compilation.Tests)
	slices.SortStableFunc(tests, func(a, b domain.TestBinary) int {
		if c := domain.ComparePackageIDs(a.Package.ID(), b.Package.ID()); c != 0 {
			return c
		}
		return strings.Compare(a.Target, b.Target)
	})

	for _, test := range tests {
		process := p.targetProcess(compilation, test.Path, test.Package).Arg(args...)
		process.Dir = test.Package.Root()
		p.logger.Status("Running", process.String())
		if err := opts.ExecEngine.Exec(ctx, process); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrTestFailed.Error()), "test", test.Target)
		}
	}

	if opts.Mode.Kind != domain.ModeKindTest {
		return nil
	}
	return p.runDocTests(ctx, compilation, opts, args)
}

// RunBenches is RunTests with the harnesses switched into benchmark mode.
func (p *Pipeline) RunBenches(ctx context.Context, manifestPath string, opts Options, args []string, noRun bool) error {
	return p.RunTests(ctx, manifestPath, opts, append(slices.Clone(args), "--bench"), noRun)
}

func (p *Pipeline) runDocTests(ctx context.Context, compilation *domain.Compilation, opts Options, args []string) error {
	rustdoc, err := tool(opts.Config, "rustdoc")
	if err != nil {
		return err
	}

	for _, pkg := range compilation.ToDocTest {
		lib, ok := pkg.Lib()
		if !ok || !lib.Doctested() {
			continue
		}
		p.logger.Status("Doc-tests", lib.Name)

		process := domain.NewProcess(rustdoc,
			"--test", lib.SrcPath,
			"--crate-name", lib.CrateName(),
			"-L", compilation.RootOutput,
			"-L", "dependency="+compilation.DepsOutput,
		)
		for _, dir := range compilation.NativeDirs {
			process.Arg("-L", "native="+dir)
		}
		for _, arg := range args {
			process.Arg("--test-args", arg)
		}
		for _, extern := range externs(compilation) {
			process.Arg("--extern", extern)
		}
		process.Dir = pkg.Root()
		process.Stdin, process.Stdout, process.Stderr = p.stdin, p.stdout, p.stderr

		p.logger.Debug("Running " + process.String())
		if err := opts.ExecEngine.Exec(ctx, process); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrTestFailed.Error()), "doc-test", lib.Name)
		}
	}
	return nil
}

// externs returns `name=path` for every library of the compilation.
func externs(compilation *domain.Compilation) []string {
	ids := make([]domain.PackageID, 0, len(compilation.Libraries))
	for id := range compilation.Libraries {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, domain.ComparePackageIDs)

	var out []string
	for _, id := range ids {
		for _, path := range compilation.Libraries[id] {
			name := strings.TrimPrefix(filepath.Base(path), "lib")
			name = strings.TrimSuffix(name, filepath.Ext(name))
			name, _, _ = strings.Cut(name, "-")
			out = append(out, name+"="+path)
		}
	}
	return out
}

// targetProcess prepares the invocation of a built executable of pkg.
func (p *Pipeline) targetProcess(compilation *domain.Compilation, exe string, pkg *domain.Package) *domain.ProcessBuilder {
	process := domain.NewProcess(exe)
	process.Stdin, process.Stdout, process.Stderr = p.stdin, p.stdout, p.stderr

	process.SetEnv("FORGE_MANIFEST_DIR", pkg.Root())
	process.SetEnv("FORGE_PKG_NAME", pkg.Name())
	process.SetEnv("FORGE_PKG_VERSION", pkg.Version())

	search := slices.Clone(compilation.NativeDirs)
	search = append(search, compilation.DepsOutput)
	if existing := os.Getenv(dylibPathVar()); existing != "" {
		search = append(search, filepath.SplitList(existing)...)
	}
	process.SetEnv(dylibPathVar(), strings.Join(search, string(os.PathListSeparator)))
	return process
}

func dylibPathVar() string {
	switch runtime.GOOS {
	case "windows":
		return "PATH"
	case "darwin":
		return "DYLD_LIBRARY_PATH"
	default:
		return "LD_LIBRARY_PATH"
	}
}
