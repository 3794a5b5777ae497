package domain

import "slices"

// Profile is a named set of compiler settings.
type Profile struct {
	Name            string
	OptLevel        int
	Debuginfo       bool
	DebugAssertions bool
	CodegenUnits    int
	Test            bool
	Doc             bool
	RustcArgs       []string
	RustdocArgs     []string
}

// WithRustcArgs returns a copy of the profile carrying extra compiler arguments.
func (p Profile) WithRustcArgs(args []string) Profile {
	p.RustcArgs = slices.Clone(args)
	return p
}

// WithRustdocArgs returns a copy of the profile carrying extra doc generator arguments.
func (p Profile) WithRustdocArgs(args []string) Profile {
	p.RustdocArgs = slices.Clone(args)
	return p
}

// Equal reports whether both profiles describe the same settings.
func (p Profile) Equal(o Profile) bool {
	return p.Name == o.Name &&
		p.OptLevel == o.OptLevel &&
		p.Debuginfo == o.Debuginfo &&
		p.DebugAssertions == o.DebugAssertions &&
		p.CodegenUnits == o.CodegenUnits &&
		p.Test == o.Test &&
		p.Doc == o.Doc &&
		slices.Equal(p.RustcArgs, o.RustcArgs) &&
		slices.Equal(p.RustdocArgs, o.RustdocArgs)
}

// Profiles holds the profiles of a package, one per purpose.
type Profiles struct {
	Dev     Profile
	Release Profile
	Test    Profile
	Bench   Profile
	Doc     Profile
}

// DefaultProfiles returns the profiles used when a manifest overrides nothing.
func DefaultProfiles() Profiles {
	return Profiles{
		Dev:     Profile{Name: "dev", OptLevel: 0, Debuginfo: true, DebugAssertions: true, CodegenUnits: 1},
		Release: Profile{Name: "release", OptLevel: 3, CodegenUnits: 1},
		Test:    Profile{Name: "test", OptLevel: 0, Debuginfo: true, DebugAssertions: true, CodegenUnits: 1, Test: true},
		Bench:   Profile{Name: "bench", OptLevel: 3, CodegenUnits: 1, Test: true},
		Doc:     Profile{Name: "doc", Doc: true, CodegenUnits: 1},
	}
}
