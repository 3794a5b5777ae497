package compile

import (
	"context"
	"path/filepath"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var (
	errRustcArgsTargets = zerr.New("extra arguments to `rustc` can only be passed to one target, consider filtering\n" +
		"the package by passing e.g. `--lib` or `--bin NAME` to specify a single target")
	errRustdocArgsTargets = zerr.New("extra arguments to `rustdoc` can only be passed to one target, consider filtering\n" +
		"the package by passing e.g. `--lib` or `--bin NAME` to specify a single target")
)

// Options are the inputs of one compile invocation.
type Options struct {
	Config ports.Config

	// Jobs is the command line job count, nil when not given.
	Jobs *int
	// Target is the requested target triple, empty for the host.
	Target string
	// Features is the space separated list of features to activate.
	Features          string
	NoDefaultFeatures bool
	// Spec lists package id specifications to build instead of the root package.
	Spec   []string
	Filter domain.CompileFilter

	ExecEngine domain.ExecEngine
	Release    bool
	Mode       domain.CompileMode

	// TargetRustcArgs and TargetRustdocArgs are passed to the single
	// selected target.
	TargetRustcArgs   []string
	TargetRustdocArgs []string
}

// Compile loads the package at manifestPath and compiles it.
func (p *Pipeline) Compile(ctx context.Context, manifestPath string, opts Options) (*domain.Compilation, error) {
	root, err := p.loadRoot(manifestPath)
	if err != nil {
		return nil, err
	}
	return p.CompilePkg(ctx, root, nil, opts)
}

func (p *Pipeline) loadRoot(manifestPath string) (*domain.Package, error) {
	id, err := domain.NewPathSourceID(filepath.Dir(manifestPath))
	if err != nil {
		return nil, err
	}
	return p.manifests.Load(manifestPath, id)
}

// CompilePkg resolves the dependencies of root, selects the targets of every
// requested package and hands them to the orchestrator. preloaded, when not
// nil, is the already updated source of root.
func (p *Pipeline) CompilePkg(
	ctx context.Context,
	root *domain.Package,
	preloaded ports.Source,
	opts Options,
) (*domain.Compilation, error) {
	features := splitFeatures(opts.Features)
	if opts.Jobs != nil && *opts.Jobs < 1 {
		return nil, zerr.With(domain.ErrJobsZero, "jobs", *opts.Jobs)
	}

	for _, warning := range root.Warnings() {
		p.logger.Warn(warning)
	}

	profiles := root.Profiles()

	// Reject a bad filter before resolving, which may hit the network.
	if len(opts.Spec) == 0 {
		if _, err := GenerateTargets(root, profiles, opts.Mode, opts.Filter, opts.Release); err != nil {
			return nil, err
		}
	}

	pkgs, resolve, err := p.ResolveDependencies(ctx, root, opts.Config, preloaded, features, opts.NoDefaultFeatures)
	if err != nil {
		return nil, err
	}

	selected, err := selectPackages(root, pkgs, resolve, opts.Spec)
	if err != nil {
		return nil, err
	}

	extraArgs := len(opts.TargetRustcArgs) > 0 || len(opts.TargetRustdocArgs) > 0
	if extraArgs && len(selected) != 1 {
		panic("`rustc` and `rustdoc` should not accept multiple `-p` flags")
	}

	packageTargets := make([]domain.PackageTargets, 0, len(selected))
	for _, pkg := range selected {
		targets, err := GenerateTargets(pkg, profiles, opts.Mode, opts.Filter, opts.Release)
		if err != nil {
			return nil, err
		}

		switch {
		case len(opts.TargetRustcArgs) > 0:
			if len(targets) != 1 {
				return nil, errRustcArgsTargets
			}
			targets[0].Profile = targets[0].Profile.WithRustcArgs(opts.TargetRustcArgs)
		case len(opts.TargetRustdocArgs) > 0:
			if len(targets) != 1 {
				return nil, errRustdocArgsTargets
			}
			targets[0].Profile = targets[0].Profile.WithRustdocArgs(opts.TargetRustdocArgs)
		}

		packageTargets = append(packageTargets, domain.PackageTargets{Package: pkg, Targets: targets})
	}

	bc, err := ScrapeBuildConfig(opts.Config, opts.Jobs, opts.Target)
	if err != nil {
		return nil, err
	}
	bc.ExecEngine = opts.ExecEngine
	bc.Release = opts.Release
	bc.Test = opts.Mode.Kind == domain.ModeKindTest
	bc.DocAll = opts.Mode.IsDoc() && opts.Mode.DocDeps

	compilation, err := p.orchestrator.CompileTargets(ctx, &domain.CompileRequest{
		Packages:   packageTargets,
		PackageSet: pkgs,
		Resolve:    resolve,
		Config:     bc,
		Profiles:   profiles,
	})
	if err != nil {
		return nil, err
	}
	compilation.ToDocTest = selected
	return compilation, nil
}

// splitFeatures splits a space separated feature list. No features is nil.
func splitFeatures(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	return strings.Fields(list)
}

// selectPackages maps every spec to a package of the resolve, or returns the
// root package when no spec is given.
func selectPackages(
	root *domain.Package,
	pkgs *domain.PackageSet,
	resolve *domain.Resolve,
	specs []string,
) ([]*domain.Package, error) {
	if len(specs) == 0 {
		return []*domain.Package{root}, nil
	}

	selected := make([]*domain.Package, 0, len(specs))
	for _, spec := range specs {
		id, err := resolve.Query(spec)
		if err != nil {
			return nil, err
		}
		pkg, err := pkgs.Get(id)
		if err != nil {
			return nil, err
		}
		selected = append(selected, pkg)
	}
	return selected, nil
}
