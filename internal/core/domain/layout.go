package domain

import (
	"os"
	"path/filepath"
)

const (
	// ManifestFileName is the name of a package manifest.
	ManifestFileName = "forge.yaml"

	// LockfileName is the name of the lockfile written next to the root manifest.
	LockfileName = "forge.lock"

	// ConfigDirName is the directory holding a config file in the working directory or any ancestor.
	ConfigDirName = ".forge"

	// ConfigFileName is the name of the config file inside ConfigDirName and the home directory.
	ConfigFileName = "config.toml"

	// HomeEnvVar overrides the default home directory.
	HomeEnvVar = "FORGE_HOME"

	// ConfigEnvPrefix prefixes environment variables that override scalar config keys.
	ConfigEnvPrefix = "FORGE_"

	// TargetDirName is the default output directory below the root package.
	TargetDirName = "target"

	// FingerprintDirName holds unit fingerprints inside an output directory.
	FingerprintDirName = ".fingerprint"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// DefaultRegistryIndex is the registry dependencies without a path or
	// registry key are fetched from.
	DefaultRegistryIndex = "https://packages.forge.trai.ch"
)

// DefaultRegistryID returns the source id of the default registry.
func DefaultRegistryID() SourceID {
	return NewRegistrySourceID(DefaultRegistryIndex)
}

// DefaultHomePath returns $FORGE_HOME, falling back to ~/.forge.
func DefaultHomePath() string {
	if home := os.Getenv(HomeEnvVar); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ConfigDirName
	}
	return filepath.Join(userHome, ConfigDirName)
}

// RegistryIndexCachePath returns the cache directory for index entries of one registry.
func RegistryIndexCachePath(home string, id SourceID) string {
	return filepath.Join(home, "registry", "index", id.ShortHash())
}

// RegistryArchivePath returns the directory downloaded archives are stored in.
func RegistryArchivePath(home string, id SourceID) string {
	return filepath.Join(home, "registry", "cache", id.ShortHash())
}

// RegistrySrcPath returns the directory archives of one registry are unpacked into.
func RegistrySrcPath(home string, id SourceID) string {
	return filepath.Join(home, "registry", "src", id.ShortHash())
}
