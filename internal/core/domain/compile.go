package domain

import "slices"

// CompileModeKind is the purpose of a compile invocation.
type CompileModeKind int

const (
	// ModeKindBuild builds libraries and executables.
	ModeKindBuild CompileModeKind = iota + 1
	// ModeKindTest builds test harnesses.
	ModeKindTest
	// ModeKindBench builds benchmark harnesses.
	ModeKindBench
	// ModeKindDoc generates documentation.
	ModeKindDoc
)

// CompileMode selects the profile and target predicate that apply.
type CompileMode struct {
	Kind CompileModeKind
	// DocDeps is only meaningful for ModeKindDoc and asks for documentation
	// of dependencies as well.
	DocDeps bool
}

// ModeBuild returns the build mode.
func ModeBuild() CompileMode { return CompileMode{Kind: ModeKindBuild} }

// ModeTest returns the test mode.
func ModeTest() CompileMode { return CompileMode{Kind: ModeKindTest} }

// ModeBench returns the bench mode.
func ModeBench() CompileMode { return CompileMode{Kind: ModeKindBench} }

// ModeDoc returns the doc mode, optionally documenting dependencies.
func ModeDoc(deps bool) CompileMode { return CompileMode{Kind: ModeKindDoc, DocDeps: deps} }

// IsDoc reports whether the mode generates documentation.
func (m CompileMode) IsDoc() bool { return m.Kind == ModeKindDoc }

// String returns the mode name.
func (m CompileMode) String() string {
	switch m.Kind {
	case ModeKindBuild:
		return "build"
	case ModeKindTest:
		return "test"
	case ModeKindBench:
		return "bench"
	case ModeKindDoc:
		if m.DocDeps {
			return "doc(deps)"
		}
		return "doc"
	default:
		return "unknown"
	}
}

// CompileFilter is either Everything, letting the mode choose targets, or
// Only, naming targets per kind. The discriminator is unexported so a filter
// can never be both.
type CompileFilter struct {
	only     bool
	Lib      bool
	Bins     []string
	Tests    []string
	Examples []string
	Benches  []string
}

// FilterEverything returns the mode-driven filter.
func FilterEverything() CompileFilter {
	return CompileFilter{}
}

// FilterOnly returns an explicit filter even when every list is empty.
func FilterOnly(lib bool, bins, tests, examples, benches []string) CompileFilter {
	return CompileFilter{
		only:     true,
		Lib:      lib,
		Bins:     slices.Clone(bins),
		Tests:    slices.Clone(tests),
		Examples: slices.Clone(examples),
		Benches:  slices.Clone(benches),
	}
}

// NewCompileFilter returns Only when any selector is set and Everything otherwise.
func NewCompileFilter(lib bool, bins, tests, examples, benches []string) CompileFilter {
	if lib || len(bins) > 0 || len(tests) > 0 || len(examples) > 0 || len(benches) > 0 {
		return FilterOnly(lib, bins, tests, examples, benches)
	}
	return FilterEverything()
}

// IsEverything reports whether the filter defers to the mode.
func (f CompileFilter) IsEverything() bool { return !f.only }

// IsSpecific reports whether the filter names targets explicitly.
func (f CompileFilter) IsSpecific() bool { return f.only }

// Matches reports whether the filter selects t. Build scripts never match.
func (f CompileFilter) Matches(t *Target) bool {
	if t.IsCustomBuild() {
		return false
	}
	if !f.only {
		return true
	}
	var names []string
	switch t.Kind {
	case TargetLib:
		return f.Lib
	case TargetBin:
		names = f.Bins
	case TargetTest:
		names = f.Tests
	case TargetBench:
		names = f.Benches
	case TargetExample:
		names = f.Examples
	default:
		return false
	}
	return slices.Contains(names, t.Name)
}

// TargetProfile pairs a target with the profile it is built under.
type TargetProfile struct {
	Target  *Target
	Profile Profile
}

// PackageTargets lists the selected targets of one package.
type PackageTargets struct {
	Package *Package
	Targets []TargetProfile
}

// CompileRequest is everything the compile orchestrator needs for one invocation.
type CompileRequest struct {
	Packages   []PackageTargets
	PackageSet *PackageSet
	Resolve    *Resolve
	Config     BuildConfig
	Profiles   Profiles
}

// TestBinary is a compiled test or bench harness.
type TestBinary struct {
	Package *Package
	Target  string
	Kind    TargetKind
	Path    string
}

// Compilation is the result of a successful compile.
type Compilation struct {
	RootOutput string
	DepsOutput string
	Binaries   []string
	Examples   []string
	Tests      []TestBinary
	Libraries  map[PackageID][]string
	NativeDirs []string
	ToDocTest  []*Package
}

// NewCompilation returns an empty compilation rooted at the given output directories.
func NewCompilation(root, deps string) *Compilation {
	return &Compilation{
		RootOutput: root,
		DepsOutput: deps,
		Libraries:  make(map[PackageID][]string),
	}
}
