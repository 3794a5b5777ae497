package domain

import "go.trai.ch/zerr"

var (
	// ErrJobsZero is returned when a compile is requested with a job count of zero.
	ErrJobsZero = zerr.New("jobs must be at least 1")

	// ErrNoLibraryTarget is returned when the library is requested but the package has none.
	ErrNoLibraryTarget = zerr.New("no library targets found")

	// ErrResolutionFailed wraps any failure of the dependency resolver.
	ErrResolutionFailed = zerr.New("failed to resolve dependencies")

	// ErrSourceUpdateFailed is returned when a source cannot be updated.
	ErrSourceUpdateFailed = zerr.New("failed to update source")

	// ErrPackageNotFound is returned when a package id is not part of a package set or source.
	ErrPackageNotFound = zerr.New("package not found")

	// ErrSpecNotFound is returned when a package id specification matches nothing.
	ErrSpecNotFound = zerr.New("package id specification did not match any packages")

	// ErrInvalidPackageIDSpec is returned for a malformed package id specification.
	ErrInvalidPackageIDSpec = zerr.New("invalid package id specification")

	// ErrInvalidSourceID is returned when a source id string cannot be parsed.
	ErrInvalidSourceID = zerr.New("invalid source id")

	// ErrInvalidVersion is returned when a package version is not valid semver.
	ErrInvalidVersion = zerr.New("invalid version")

	// ErrCycleDetected is returned when the resolved dependency graph contains a cycle.
	ErrCycleDetected = zerr.New("cyclic package dependency")

	// ErrConfigReadFailed is returned when a config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when a config file is not valid TOML.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrManifestNotFound is returned when no manifest exists in the working directory or its parents.
	ErrManifestNotFound = zerr.New("could not find `" + ManifestFileName + "` in the current directory or any parent directory")

	// ErrManifestReadFailed is returned when a manifest cannot be read.
	ErrManifestReadFailed = zerr.New("failed to read manifest")

	// ErrManifestParseFailed is returned when a manifest is malformed.
	ErrManifestParseFailed = zerr.New("failed to parse manifest")

	// ErrLockfileReadFailed is returned when the lockfile cannot be read.
	ErrLockfileReadFailed = zerr.New("failed to read lockfile")

	// ErrLockfileParseFailed is returned when the lockfile is malformed.
	ErrLockfileParseFailed = zerr.New("failed to parse lockfile")

	// ErrLockfileWriteFailed is returned when the lockfile cannot be written.
	ErrLockfileWriteFailed = zerr.New("failed to write lockfile")

	// ErrRegistryRequestFailed is returned when a registry request fails.
	ErrRegistryRequestFailed = zerr.New("registry request failed")

	// ErrRegistryParseFailed is returned when a registry response cannot be decoded.
	ErrRegistryParseFailed = zerr.New("failed to parse registry response")

	// ErrRegistryOffline is returned when an index entry is needed but the registry is offline.
	ErrRegistryOffline = zerr.New("registry index entry not cached and offline mode is enabled")

	// ErrChecksumMismatch is returned when a downloaded archive does not match its checksum.
	ErrChecksumMismatch = zerr.New("checksum mismatch for downloaded package")

	// ErrArchiveUnpackFailed is returned when a package archive cannot be unpacked.
	ErrArchiveUnpackFailed = zerr.New("failed to unpack package archive")

	// ErrUnitFailed wraps the failure of a single compile unit.
	ErrUnitFailed = zerr.New("could not compile unit")

	// ErrOutputOutsideTargetDir is returned when a unit would write outside the target directory.
	ErrOutputOutsideTargetDir = zerr.New("unit output is outside the target directory")

	// ErrCleanOutputFailed is returned when a stale unit output cannot be removed.
	ErrCleanOutputFailed = zerr.New("failed to clean unit output")

	// ErrBuildScriptFailed is returned when a build script exits unsuccessfully.
	ErrBuildScriptFailed = zerr.New("failed to run custom build command")

	// ErrTestFailed is returned when a test binary exits unsuccessfully.
	ErrTestFailed = zerr.New("test failed")

	// ErrNoBinTarget is returned by run when the package has no runnable binary.
	ErrNoBinTarget = zerr.New("a bin target must be available for `forge run`")

	// ErrAmbiguousExecutable is returned by run when several binaries qualify and no filter was given.
	ErrAmbiguousExecutable = zerr.New("`forge run` requires that a project only have one executable; use the `--bin` option to specify which one to run")

	// ErrMultipleExecutables is returned by run when the filter names more than one binary.
	ErrMultipleExecutables = zerr.New("`forge run` can run at most one executable, but multiple were specified")
)
