package domain

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DependencyKind tells when a dependency is needed.
type DependencyKind int

const (
	// DepNormal is needed to build the package itself.
	DepNormal DependencyKind = iota
	// DepDev is needed only by tests, benches and examples.
	DepDev
	// DepBuild is needed by the build script.
	DepBuild
)

// String returns the manifest section name of the kind.
func (k DependencyKind) String() string {
	switch k {
	case DepDev:
		return "dev"
	case DepBuild:
		return "build"
	default:
		return "normal"
	}
}

// Dependency is a declared requirement on another package.
type Dependency struct {
	Name            string
	Req             string
	Source          SourceID
	Kind            DependencyKind
	Optional        bool
	Features        []string
	DefaultFeatures bool
}

// Constraint parses the version requirement. A bare version such as "1.2"
// is treated as a caret requirement, and an empty requirement matches any
// version.
func (d Dependency) Constraint() (*semver.Constraints, error) {
	return ParseVersionReq(d.Req)
}

// Matches reports whether id has the dependency's name and source and a
// version satisfying its requirement.
func (d Dependency) Matches(id PackageID) bool {
	if d.Name != id.Name || d.Source != id.Source {
		return false
	}
	return d.MatchesVersion(id)
}

// MatchesVersion reports whether the version of id satisfies the requirement.
func (d Dependency) MatchesVersion(id PackageID) bool {
	c, err := d.Constraint()
	if err != nil {
		return false
	}
	v := id.SemVer()
	if v == nil {
		return false
	}
	return c.Check(v)
}

// IsTransitive reports whether the dependency is needed by dependents of the
// declaring package.
func (d Dependency) IsTransitive() bool {
	return d.Kind != DepDev
}

// ParseVersionReq parses a requirement string with the defaults described on
// Dependency.Constraint.
func ParseVersionReq(req string) (*semver.Constraints, error) {
	req = strings.TrimSpace(req)
	if req == "" {
		req = "*"
	}
	if req[0] >= '0' && req[0] <= '9' {
		req = "^" + req
	}
	return semver.NewConstraint(req)
}
