package scheduler

import (
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

// buildScriptOutputFile holds the captured stdout of a build script run.
const buildScriptOutputFile = "output"

// layout is the directory structure of one target directory:
//
//	target/[triple/]debug          root package artifacts
//	target/[triple/]debug/deps     dependency libraries and test harnesses
//	target/[triple/]debug/examples examples
//	target/[triple/]debug/build    build scripts and their OUT_DIRs
//	target/[triple/]doc            documentation
type layout struct {
	target string
	dest   string
	host   string
	doc    string
}

func newLayout(cfg *domain.BuildConfig, targetDir string) layout {
	host := filepath.Join(targetDir, cfg.ProfileDirName())
	l := layout{target: targetDir, dest: host, host: host, doc: filepath.Join(targetDir, "doc")}
	if cfg.RequestedTarget != "" {
		l.dest = filepath.Join(targetDir, cfg.RequestedTarget, cfg.ProfileDirName())
		l.doc = filepath.Join(targetDir, cfg.RequestedTarget, "doc")
	}
	return l
}

func (l layout) root(host bool) string {
	if host {
		return l.host
	}
	return l.dest
}

func (l layout) deps(host bool) string { return filepath.Join(l.root(host), "deps") }

func (l layout) examples() string { return filepath.Join(l.dest, "examples") }

func (l layout) build(host bool) string { return filepath.Join(l.root(host), "build") }

// invocation is the process of a unit together with the files it produces.
type invocation struct {
	process *domain.ProcessBuilder
	dirs    []string
	outputs []string
	// outFile is where the stdout of a build script run is kept.
	outFile string
}

// metadata disambiguates artifacts of different units sharing a directory.
func metadata(u *unit) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(u.key))
}

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func (state *runState) invocation(u *unit) (*invocation, error) {
	switch u.action {
	case actionRunBuildScript:
		return state.buildScriptInvocation(u)
	case actionDoc:
		return state.docInvocation(u), nil
	default:
		return state.compileInvocation(u), nil
	}
}

func (state *runState) compileInvocation(u *unit) *invocation {
	cfg := &state.req.Config
	l := state.layout
	p := domain.NewProcess(cfg.Rustc, u.target.SrcPath)
	if u.target.IsCustomBuild() {
		p.Arg("--crate-name", "build_script_"+u.target.CrateName())
	} else {
		p.Arg("--crate-name", u.target.CrateName())
	}

	var outDir, file, extra string
	switch {
	case u.target.IsCustomBuild():
		outDir = filepath.Join(l.build(u.host), u.pkg.Name()+"-"+metadata(u))
		file = exeName("build-script-" + u.target.Name)
		p.Arg("--crate-type", "bin")
	case u.isHarness():
		outDir = l.deps(u.host)
		extra = "-" + metadata(u)
		file = exeName(u.target.CrateName() + extra)
		p.Arg("--test")
	case u.target.IsLib():
		outDir = l.root(u.host)
		if !u.root {
			outDir = l.deps(u.host)
			extra = "-" + metadata(u)
		}
		file = "lib" + u.target.CrateName() + extra + ".rlib"
		p.Arg("--crate-type", "lib")
	case u.target.IsExample():
		outDir = l.examples()
		file = exeName(u.target.CrateName())
		p.Arg("--crate-type", "bin")
	default:
		outDir = l.root(u.host)
		file = exeName(u.target.CrateName())
		p.Arg("--crate-type", "bin")
	}

	profileArgs(p, u.profile)
	for _, feature := range state.req.Resolve.Features(u.pkg.ID()) {
		p.Arg("--cfg", fmt.Sprintf("feature=%q", feature))
	}
	p.Arg(u.profile.RustcArgs...)

	if u.target.IsCustomBuild() {
		// The script binary is named after the target, not the crate.
		p.Arg("-o", filepath.Join(outDir, file))
	} else {
		p.Arg("--out-dir", outDir)
	}
	if extra != "" {
		p.Arg("-C", "extra-filename="+extra)
	}
	state.targetArgs(p, u.host)
	p.Arg("-L", "dependency="+l.deps(u.host))

	for _, dep := range u.deps {
		if dep.action == actionCompile && dep.target.IsLib() && len(dep.artifacts) > 0 {
			p.Arg("--extern", dep.target.CrateName()+"="+dep.artifacts[0])
		}
	}
	state.linkArgs(p, u)
	packageEnv(p, u.pkg)

	return &invocation{
		process: p,
		dirs:    []string{outDir},
		outputs: []string{filepath.Join(outDir, file)},
	}
}

func profileArgs(p *domain.ProcessBuilder, profile domain.Profile) {
	if profile.OptLevel != 0 {
		p.Arg("-C", "opt-level="+strconv.Itoa(profile.OptLevel))
	}
	if profile.Debuginfo {
		p.Arg("-g")
	}
	// Debug assertions follow the optimization level unless set otherwise.
	if profile.DebugAssertions != (profile.OptLevel == 0) {
		if profile.DebugAssertions {
			p.Arg("-C", "debug-assertions=on")
		} else {
			p.Arg("-C", "debug-assertions=off")
		}
	}
	if profile.CodegenUnits > 1 {
		p.Arg("-C", "codegen-units="+strconv.Itoa(profile.CodegenUnits))
	}
}

func (state *runState) targetArgs(p *domain.ProcessBuilder, host bool) {
	cfg := &state.req.Config
	if !host && cfg.RequestedTarget != "" {
		p.Arg("--target", cfg.RequestedTarget)
	}
	tc := state.graph.targetConfig(host)
	if tc.Ar != "" {
		p.Arg("-C", "ar="+tc.Ar)
	}
	if tc.Linker != "" {
		p.Arg("-C", "linker="+tc.Linker)
	}
}

// linkArgs passes the native libraries of the package and the search paths
// of its dependencies.
func (state *runState) linkArgs(p *domain.ProcessBuilder, u *unit) {
	if u.target.IsCustomBuild() {
		return
	}
	own, hasOwn := state.graph.buildOutputOf(u.pkg, u.host)
	paths := slices.Clone(own.LibraryPaths)
	for _, dep := range u.deps {
		if dep.action != actionCompile || !dep.target.IsLib() || dep.pkg == u.pkg {
			continue
		}
		if out, ok := state.graph.buildOutputOf(dep.pkg, dep.host); ok {
			paths = append(paths, out.LibraryPaths...)
		}
	}
	for _, path := range uniq(paths) {
		p.Arg("-L", "native="+path)
	}
	if !hasOwn {
		return
	}
	for _, link := range own.LibraryLinks {
		p.Arg("-l", link)
	}
	for _, cfg := range own.Cfgs {
		p.Arg("--cfg", cfg)
	}
}

func (state *runState) buildScriptInvocation(u *unit) (*invocation, error) {
	cfg := &state.req.Config
	compile := u.deps[0]
	if len(compile.artifacts) == 0 {
		return nil, zerr.With(domain.ErrBuildScriptFailed, "package", u.pkg.String())
	}

	dir := filepath.Join(state.layout.build(u.host), u.pkg.Name()+"-"+metadata(u))
	outDir := filepath.Join(dir, "out")

	p := domain.NewProcess(compile.artifacts[0])
	p.Dir = u.pkg.Root()
	packageEnv(p, u.pkg)
	p.SetEnv("OUT_DIR", outDir)
	p.SetEnv("NUM_JOBS", strconv.Itoa(cfg.Jobs))
	p.SetEnv("OPT_LEVEL", strconv.Itoa(u.profile.OptLevel))
	p.SetEnv("DEBUG", strconv.FormatBool(u.profile.Debuginfo))
	p.SetEnv("PROFILE", cfg.ProfileDirName())
	p.SetEnv("HOST", cfg.HostTriple)
	target := cfg.RequestedTarget
	if target == "" || u.host {
		target = cfg.HostTriple
	}
	p.SetEnv("TARGET", target)
	for _, feature := range state.req.Resolve.Features(u.pkg.ID()) {
		p.SetEnv("FORGE_FEATURE_"+envName(feature), "1")
	}

	// Libraries a package links advertise their metadata to its dependents.
	for _, dep := range u.deps[1:] {
		state.depEnv(p, dep.pkg, u.host)
	}
	pkgs, err := state.graph.depPackages(u.pkg, domain.DepNormal)
	if err != nil {
		return nil, err
	}
	for _, pkg := range pkgs {
		if _, ok := state.graph.overrides[overrideKey(pkg, u.host)]; ok {
			state.depEnv(p, pkg, u.host)
		}
	}

	outFile := filepath.Join(dir, buildScriptOutputFile)
	return &invocation{
		process: p,
		dirs:    []string{outDir},
		outputs: []string{outFile},
		outFile: outFile,
	}, nil
}

func (state *runState) depEnv(p *domain.ProcessBuilder, pkg *domain.Package, host bool) {
	links := pkg.Links()
	if links == "" {
		return
	}
	out, ok := state.graph.buildOutputOf(pkg, host)
	if !ok {
		return
	}
	for _, m := range out.Metadata {
		p.SetEnv("DEP_"+envName(links)+"_"+envName(m.Key), m.Value)
	}
}

func (state *runState) docInvocation(u *unit) *invocation {
	cfg := &state.req.Config
	l := state.layout
	p := domain.NewProcess(cfg.Rustdoc, u.target.SrcPath)
	p.Arg("--crate-name", u.target.CrateName())
	p.Arg("-o", l.doc)
	for _, feature := range state.req.Resolve.Features(u.pkg.ID()) {
		p.Arg("--cfg", fmt.Sprintf("feature=%q", feature))
	}
	p.Arg(u.profile.RustdocArgs...)
	if cfg.RequestedTarget != "" {
		p.Arg("--target", cfg.RequestedTarget)
	}
	p.Arg("-L", "dependency="+l.deps(false))
	for _, dep := range u.deps {
		if dep.action == actionCompile && dep.target.IsLib() && dep.pkg != u.pkg && len(dep.artifacts) > 0 {
			p.Arg("--extern", dep.target.CrateName()+"="+dep.artifacts[0])
		}
	}
	state.linkArgs(p, u)
	packageEnv(p, u.pkg)

	return &invocation{
		process: p,
		dirs:    []string{l.doc},
		outputs: []string{filepath.Join(l.doc, u.target.CrateName(), "index.html")},
	}
}

func packageEnv(p *domain.ProcessBuilder, pkg *domain.Package) {
	p.SetEnv("FORGE_MANIFEST_DIR", pkg.Root())
	p.SetEnv("FORGE_PKG_NAME", pkg.Name())
	p.SetEnv("FORGE_PKG_VERSION", pkg.Version())
}

func envName(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
}

func uniq(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return slices.Clip(out)
}
