package domain

import (
	"maps"
	"path/filepath"
	"slices"

	"github.com/agnivade/levenshtein"
)

// maxSuggestionDistance bounds how different a suggested target name may be.
const maxSuggestionDistance = 3

// Manifest is the parsed content of a package manifest.
type Manifest struct {
	ID           PackageID
	Dependencies []Dependency
	Targets      []Target
	Profiles     Profiles
	Features     map[string][]string
	Links        string
	Warnings     []string
}

// Summary is the resolver's view of a package: its id, dependencies and features.
type Summary struct {
	ID           PackageID
	Dependencies []Dependency
	Features     map[string][]string
	Checksum     string
	Yanked       bool
}

// Package is a loaded manifest together with its location. It is immutable.
type Package struct {
	manifest     Manifest
	manifestPath string
}

// NewPackage returns a package for the manifest found at manifestPath.
func NewPackage(m *Manifest, manifestPath string) *Package {
	cp := *m
	cp.Dependencies = slices.Clone(m.Dependencies)
	cp.Targets = slices.Clone(m.Targets)
	cp.Features = maps.Clone(m.Features)
	cp.Warnings = slices.Clone(m.Warnings)
	return &Package{manifest: cp, manifestPath: manifestPath}
}

// ID returns the package id.
func (p *Package) ID() PackageID { return p.manifest.ID }

// Name returns the package name.
func (p *Package) Name() string { return p.manifest.ID.Name }

// Version returns the package version.
func (p *Package) Version() string { return p.manifest.ID.Version }

// ManifestPath returns the path of the manifest file.
func (p *Package) ManifestPath() string { return p.manifestPath }

// Root returns the package directory.
func (p *Package) Root() string { return filepath.Dir(p.manifestPath) }

// Dependencies returns the declared dependencies.
func (p *Package) Dependencies() []Dependency { return p.manifest.Dependencies }

// Targets returns the targets in declaration order.
func (p *Package) Targets() []Target { return p.manifest.Targets }

// Profiles returns the profiles of the package.
func (p *Package) Profiles() Profiles { return p.manifest.Profiles }

// Features returns the feature table.
func (p *Package) Features() map[string][]string { return p.manifest.Features }

// Links returns the native library the package links, if any.
func (p *Package) Links() string { return p.manifest.Links }

// Warnings returns the warnings collected while parsing the manifest.
func (p *Package) Warnings() []string { return p.manifest.Warnings }

// Summary returns the resolver's view of the package.
func (p *Package) Summary() Summary {
	return Summary{
		ID:           p.manifest.ID,
		Dependencies: p.manifest.Dependencies,
		Features:     p.manifest.Features,
	}
}

// Lib returns the library target, if the package has one.
func (p *Package) Lib() (*Target, bool) {
	for i := range p.manifest.Targets {
		if p.manifest.Targets[i].IsLib() {
			return &p.manifest.Targets[i], true
		}
	}
	return nil, false
}

// CustomBuild returns the build script target, if the package has one.
func (p *Package) CustomBuild() (*Target, bool) {
	for i := range p.manifest.Targets {
		if p.manifest.Targets[i].IsCustomBuild() {
			return &p.manifest.Targets[i], true
		}
	}
	return nil, false
}

// FindTarget returns the target of kind named name.
func (p *Package) FindTarget(name string, kind TargetKind) (*Target, bool) {
	for i := range p.manifest.Targets {
		t := &p.manifest.Targets[i]
		if t.Kind == kind && t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// FindClosestTarget returns the same-kind target whose name has the smallest
// edit distance to name, if that distance is small enough to be a typo.
func (p *Package) FindClosestTarget(name string, kind TargetKind) (*Target, bool) {
	var best *Target
	bestDistance := maxSuggestionDistance + 1
	for i := range p.manifest.Targets {
		t := &p.manifest.Targets[i]
		if t.Kind != kind {
			continue
		}
		if d := levenshtein.ComputeDistance(name, t.Name); d < bestDistance {
			best, bestDistance = t, d
		}
	}
	return best, best != nil
}

// String renders the package id.
func (p *Package) String() string { return p.manifest.ID.String() }
