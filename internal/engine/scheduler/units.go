package scheduler

import (
	"fmt"
	"slices"

	"go.trai.ch/forge/internal/core/domain"
)

type unitAction int

const (
	actionCompile unitAction = iota
	actionRunBuildScript
	actionDoc
)

func (a unitAction) String() string {
	switch a {
	case actionRunBuildScript:
		return "run-build-script"
	case actionDoc:
		return "doc"
	default:
		return "compile"
	}
}

// unit is one compiler, doc generator or build script invocation.
//
// The fields below the separator are written by the worker that runs the
// unit and read by dependents, which only start after the result has been
// handled by the execution loop.
type unit struct {
	key     string
	pkg     *domain.Package
	target  *domain.Target
	profile domain.Profile
	action  unitAction
	host    bool
	root    bool

	deps       []*unit
	dependents []*unit

	hash      string
	artifacts []string
	output    *domain.BuildOutput
}

func (u *unit) String() string {
	switch u.action {
	case actionRunBuildScript:
		return fmt.Sprintf("%s v%s build script", u.pkg.Name(), u.pkg.Version())
	case actionDoc:
		return fmt.Sprintf("%s v%s %s (doc)", u.pkg.Name(), u.pkg.Version(), u.target.Name)
	default:
		return fmt.Sprintf("%s v%s %s %q (%s)", u.pkg.Name(), u.pkg.Version(), u.target.Kind, u.target.Name, u.profile.Name)
	}
}

// isHarness reports whether the unit produces a test or bench executable.
func (u *unit) isHarness() bool {
	return u.action == actionCompile && u.profile.Test && u.target.Harness && !u.target.IsExample()
}

// unitGraph is the set of units needed for one compile request, in the
// order they were discovered.
type unitGraph struct {
	req       *domain.CompileRequest
	units     map[string]*unit
	order     []*unit
	roots     map[domain.PackageID]bool
	overrides map[string]domain.BuildOutput
}

func newUnitGraph(req *domain.CompileRequest) (*unitGraph, error) {
	g := &unitGraph{
		req:       req,
		units:     make(map[string]*unit),
		roots:     make(map[domain.PackageID]bool, len(req.Packages)),
		overrides: make(map[string]domain.BuildOutput),
	}
	for _, pt := range req.Packages {
		g.roots[pt.Package.ID()] = true
	}

	for _, pt := range req.Packages {
		for _, tp := range pt.Targets {
			action := actionCompile
			if tp.Profile.Doc {
				action = actionDoc
			}
			if _, err := g.unitFor(pt.Package, tp.Target, tp.Profile, action, false); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// buildProfile is the profile dependencies and build scripts are compiled with.
func (g *unitGraph) buildProfile() domain.Profile {
	if g.req.Config.Release {
		return g.req.Profiles.Release
	}
	return g.req.Profiles.Dev
}

func (g *unitGraph) targetConfig(host bool) domain.TargetConfig {
	if host {
		return g.req.Config.Host
	}
	return g.req.Config.Target
}

func unitKey(pkg *domain.Package, target *domain.Target, profile domain.Profile, action unitAction, host bool) string {
	kind := "target"
	if host {
		kind = "host"
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s/%s", pkg.ID().LockString(), target.Kind, target.Name, profile.Name, action, kind)
}

func (g *unitGraph) unitFor(
	pkg *domain.Package,
	target *domain.Target,
	profile domain.Profile,
	action unitAction,
	host bool,
) (*unit, error) {
	// Without cross compilation host and target artifacts share a directory.
	host = host && g.req.Config.RequestedTarget != ""

	key := unitKey(pkg, target, profile, action, host)
	if u, ok := g.units[key]; ok {
		return u, nil
	}

	u := &unit{
		key:     key,
		pkg:     pkg,
		target:  target,
		profile: profile,
		action:  action,
		host:    host,
		root:    g.roots[pkg.ID()] && !host,
	}
	g.units[key] = u
	g.order = append(g.order, u)

	deps, err := g.depsOf(u)
	if err != nil {
		return nil, err
	}
	for _, dep := range deps {
		if slices.Contains(u.deps, dep) {
			continue
		}
		u.deps = append(u.deps, dep)
		dep.dependents = append(dep.dependents, u)
	}
	return u, nil
}

func (g *unitGraph) depsOf(u *unit) ([]*unit, error) {
	if u.action == actionRunBuildScript {
		return g.buildScriptRunDeps(u)
	}

	var deps []*unit
	if u.target.IsCustomBuild() {
		pkgs, err := g.depPackages(u.pkg, domain.DepBuild)
		if err != nil {
			return nil, err
		}
		for _, dep := range pkgs {
			if lib, ok := dep.Lib(); ok {
				d, err := g.unitFor(dep, lib, g.buildProfile(), actionCompile, true)
				if err != nil {
					return nil, err
				}
				deps = append(deps, d)
			}
		}
		return deps, nil
	}

	kinds := []domain.DependencyKind{domain.DepNormal}
	if u.profile.Test || !(u.target.IsLib() || u.target.IsBin()) {
		kinds = append(kinds, domain.DepDev)
	}
	pkgs, err := g.depPackages(u.pkg, kinds...)
	if err != nil {
		return nil, err
	}
	for _, dep := range pkgs {
		lib, ok := dep.Lib()
		if !ok {
			continue
		}
		d, err := g.unitFor(dep, lib, g.buildProfile(), actionCompile, u.host)
		if err != nil {
			return nil, err
		}
		deps = append(deps, d)
		if u.action == actionDoc && g.req.Config.DocAll {
			doc, err := g.unitFor(dep, lib, g.req.Profiles.Doc, actionDoc, false)
			if err != nil {
				return nil, err
			}
			deps = append(deps, doc)
		}
	}

	run, err := g.buildScriptRun(u.pkg, u.host)
	if err != nil {
		return nil, err
	}
	if run != nil {
		deps = append(deps, run)
	}

	// Everything but the library itself links against the package's own library.
	if lib, ok := u.pkg.Lib(); ok && !u.target.IsLib() {
		d, err := g.unitFor(u.pkg, lib, g.buildProfile(), actionCompile, u.host)
		if err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, nil
}

func (g *unitGraph) buildScriptRunDeps(u *unit) ([]*unit, error) {
	compile, err := g.unitFor(u.pkg, u.target, g.buildProfile(), actionCompile, true)
	if err != nil {
		return nil, err
	}
	deps := []*unit{compile}

	// Scripts of linked dependencies run first so their metadata is available.
	pkgs, err := g.depPackages(u.pkg, domain.DepNormal)
	if err != nil {
		return nil, err
	}
	for _, dep := range pkgs {
		run, err := g.buildScriptRun(dep, u.host)
		if err != nil {
			return nil, err
		}
		if run != nil {
			deps = append(deps, run)
		}
	}
	return deps, nil
}

// buildScriptRun returns the unit running the build script of pkg, or nil
// when there is no script or its output is overridden by configuration.
func (g *unitGraph) buildScriptRun(pkg *domain.Package, host bool) (*unit, error) {
	script, ok := pkg.CustomBuild()
	if !ok {
		return nil, nil
	}
	if links := pkg.Links(); links != "" {
		if out, ok := g.targetConfig(host).Overrides[links]; ok {
			g.overrides[overrideKey(pkg, host)] = out
			return nil, nil
		}
	}
	return g.unitFor(pkg, script, g.buildProfile(), actionRunBuildScript, host)
}

func overrideKey(pkg *domain.Package, host bool) string {
	return fmt.Sprintf("%s/%t", pkg.ID().LockString(), host)
}

// buildOutputOf returns the link information of pkg, from its finished
// build script or from a configured override.
func (g *unitGraph) buildOutputOf(pkg *domain.Package, host bool) (domain.BuildOutput, bool) {
	host = host && g.req.Config.RequestedTarget != ""
	if out, ok := g.overrides[overrideKey(pkg, host)]; ok {
		return out, true
	}
	script, ok := pkg.CustomBuild()
	if !ok {
		return domain.BuildOutput{}, false
	}
	run, ok := g.units[unitKey(pkg, script, g.buildProfile(), actionRunBuildScript, host)]
	if !ok || run.output == nil {
		return domain.BuildOutput{}, false
	}
	return *run.output, true
}

// depPackages returns the resolved dependencies of pkg declared with one of kinds.
func (g *unitGraph) depPackages(pkg *domain.Package, kinds ...domain.DependencyKind) ([]*domain.Package, error) {
	var out []*domain.Package
	for _, id := range g.req.Resolve.Deps(pkg.ID()) {
		if !declaredAs(pkg, id, kinds) {
			continue
		}
		dep, err := g.req.PackageSet.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, nil
}

func declaredAs(pkg *domain.Package, id domain.PackageID, kinds []domain.DependencyKind) bool {
	for _, d := range pkg.Dependencies() {
		if d.Name == id.Name && slices.Contains(kinds, d.Kind) {
			return true
		}
	}
	return false
}
