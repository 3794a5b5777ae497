package domain

// TargetConfig is the configuration of one target triple.
type TargetConfig struct {
	// Ar is the archiver, empty when unset.
	Ar string
	// Linker is the linker, empty when unset.
	Linker string
	// Overrides maps a library name to link information that replaces
	// running its build script.
	Overrides map[string]BuildOutput
}

// BuildConfig is the merged configuration handed to the compile orchestrator.
type BuildConfig struct {
	Jobs            int
	HostTriple      string
	RequestedTarget string
	Host            TargetConfig
	Target          TargetConfig
	Release         bool
	Test            bool
	DocAll          bool
	ExecEngine      ExecEngine

	Rustc     string
	Rustdoc   string
	TargetDir string
}

// ProfileDirName returns the output subdirectory for the build profile.
func (c *BuildConfig) ProfileDirName() string {
	if c.Release {
		return "release"
	}
	return "debug"
}
