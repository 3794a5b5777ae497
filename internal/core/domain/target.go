package domain

import "strings"

// TargetKind is the kind of a buildable unit.
type TargetKind int

const (
	// TargetLib is a library.
	TargetLib TargetKind = iota + 1
	// TargetBin is an executable.
	TargetBin
	// TargetTest is an integration test.
	TargetTest
	// TargetBench is a benchmark.
	TargetBench
	// TargetExample is an example executable.
	TargetExample
	// TargetCustomBuild is a build script.
	TargetCustomBuild
)

// String returns the name used in user-facing messages.
func (k TargetKind) String() string {
	switch k {
	case TargetLib:
		return "lib"
	case TargetBin:
		return "bin"
	case TargetTest:
		return "test"
	case TargetBench:
		return "bench"
	case TargetExample:
		return "example"
	case TargetCustomBuild:
		return "custom-build"
	default:
		return "unknown"
	}
}

// Target is one buildable unit of a package. The flags say which modes
// include the target when no explicit filter is given.
type Target struct {
	Kind    TargetKind
	Name    string
	SrcPath string

	Test    bool
	Bench   bool
	Doc     bool
	Doctest bool
	Harness bool
}

// NewLibTarget returns a library target with the default flags.
func NewLibTarget(name, src string) Target {
	return Target{Kind: TargetLib, Name: name, SrcPath: src, Test: true, Bench: true, Doc: true, Doctest: true, Harness: true}
}

// NewBinTarget returns an executable target with the default flags.
func NewBinTarget(name, src string) Target {
	return Target{Kind: TargetBin, Name: name, SrcPath: src, Test: true, Bench: true, Doc: true, Harness: true}
}

// NewExampleTarget returns an example target. Examples are built, not run,
// when testing.
func NewExampleTarget(name, src string) Target {
	return Target{Kind: TargetExample, Name: name, SrcPath: src, Test: true}
}

// NewTestTarget returns an integration test target.
func NewTestTarget(name, src string) Target {
	return Target{Kind: TargetTest, Name: name, SrcPath: src, Test: true, Harness: true}
}

// NewBenchTarget returns a benchmark target.
func NewBenchTarget(name, src string) Target {
	return Target{Kind: TargetBench, Name: name, SrcPath: src, Bench: true, Harness: true}
}

// NewCustomBuildTarget returns a build script target.
func NewCustomBuildTarget(name, src string) Target {
	return Target{Kind: TargetCustomBuild, Name: name, SrcPath: src}
}

// Tested reports whether test mode includes the target by default.
func (t *Target) Tested() bool { return t.Test }

// Benched reports whether bench mode includes the target by default.
func (t *Target) Benched() bool { return t.Bench }

// Documented reports whether doc mode includes the target by default.
func (t *Target) Documented() bool { return t.Doc }

// Doctested reports whether the documentation examples of the target are run.
func (t *Target) Doctested() bool { return t.Doctest && t.IsLib() }

// IsLib reports whether the target is a library.
func (t *Target) IsLib() bool { return t.Kind == TargetLib }

// IsBin reports whether the target is an executable.
func (t *Target) IsBin() bool { return t.Kind == TargetBin }

// IsExample reports whether the target is an example.
func (t *Target) IsExample() bool { return t.Kind == TargetExample }

// IsTest reports whether the target is an integration test.
func (t *Target) IsTest() bool { return t.Kind == TargetTest }

// IsBench reports whether the target is a benchmark.
func (t *Target) IsBench() bool { return t.Kind == TargetBench }

// IsCustomBuild reports whether the target is a build script.
func (t *Target) IsCustomBuild() bool { return t.Kind == TargetCustomBuild }

// CrateName returns the name passed to the compiler.
func (t *Target) CrateName() string {
	return strings.ReplaceAll(t.Name, "-", "_")
}

// String renders the target as "kind `name`".
func (t *Target) String() string {
	return t.Kind.String() + " `" + t.Name + "`"
}
