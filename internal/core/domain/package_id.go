package domain

import (
	"cmp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zerr"
)

// PackageID identifies a package by name, version and source.
type PackageID struct {
	Name    string
	Version string
	Source  SourceID
}

// NewPackageID validates the version and returns the id.
func NewPackageID(name, version string, source SourceID) (PackageID, error) {
	if _, err := semver.StrictNewVersion(version); err != nil {
		err = zerr.With(zerr.Wrap(err, ErrInvalidVersion.Error()), "package", name)
		return PackageID{}, zerr.With(err, "version", version)
	}
	return PackageID{Name: name, Version: version, Source: source}, nil
}

// SemVer returns the parsed version, or nil if the id was built without validation.
func (id PackageID) SemVer() *semver.Version {
	v, err := semver.StrictNewVersion(id.Version)
	if err != nil {
		return nil
	}
	return v
}

// String renders the id as "name v1.2.3 (source)".
func (id PackageID) String() string {
	var b strings.Builder
	b.WriteString(id.Name)
	b.WriteString(" v")
	b.WriteString(id.Version)
	if !id.Source.IsZero() {
		b.WriteString(" (")
		b.WriteString(id.Source.Display())
		b.WriteString(")")
	}
	return b.String()
}

// LockString renders the id in the form stored in lockfiles: "name version (source)".
func (id PackageID) LockString() string {
	return id.Name + " " + id.Version + " (" + id.Source.String() + ")"
}

// ParseLockString parses the form produced by LockString.
func ParseLockString(s string) (PackageID, error) {
	name, rest, ok := strings.Cut(s, " ")
	if !ok {
		return PackageID{}, zerr.With(ErrLockfileParseFailed, "dependency", s)
	}
	version, source, ok := strings.Cut(rest, " ")
	if !ok || !strings.HasPrefix(source, "(") || !strings.HasSuffix(source, ")") {
		return PackageID{}, zerr.With(ErrLockfileParseFailed, "dependency", s)
	}
	sid, err := ParseSourceID(strings.TrimSuffix(strings.TrimPrefix(source, "("), ")"))
	if err != nil {
		return PackageID{}, err
	}
	return NewPackageID(name, version, sid)
}

// ComparePackageIDs orders ids by name, then semantic version, then source.
func ComparePackageIDs(a, b PackageID) int {
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	va, vb := a.SemVer(), b.SemVer()
	if va != nil && vb != nil {
		if c := va.Compare(vb); c != 0 {
			return c
		}
	} else if c := cmp.Compare(a.Version, b.Version); c != 0 {
		return c
	}
	return cmp.Compare(a.Source.String(), b.Source.String())
}
