package domain

import (
	"path"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zerr"
)

// PackageIDSpec is a partial package id used to pick packages out of a
// resolve: "name", "name:version", "url#name", "url#version" or
// "url#name:version".
type PackageIDSpec struct {
	Name    string
	Version string
	URL     string
}

// ParsePackageIDSpec parses a package id specification.
func ParsePackageIDSpec(spec string) (PackageIDSpec, error) {
	if strings.Contains(spec, "://") {
		return parseURLSpec(spec)
	}

	name, version, _ := strings.Cut(spec, ":")
	if name == "" {
		return PackageIDSpec{}, zerr.With(ErrInvalidPackageIDSpec, "spec", spec)
	}
	if version != "" {
		if _, err := semver.StrictNewVersion(version); err != nil {
			return PackageIDSpec{}, zerr.With(zerr.Wrap(err, ErrInvalidPackageIDSpec.Error()), "spec", spec)
		}
	}
	return PackageIDSpec{Name: name, Version: version}, nil
}

func parseURLSpec(spec string) (PackageIDSpec, error) {
	url, fragment, _ := strings.Cut(spec, "#")
	lastSegment := path.Base(strings.TrimSuffix(url, "/"))

	var name, version string
	switch {
	case fragment == "":
		name = lastSegment
	case strings.Contains(fragment, ":"):
		name, version, _ = strings.Cut(fragment, ":")
	default:
		if _, err := semver.StrictNewVersion(fragment); err == nil {
			name, version = lastSegment, fragment
		} else {
			name = fragment
		}
	}

	if name == "" || name == "." || name == "/" {
		return PackageIDSpec{}, zerr.With(ErrInvalidPackageIDSpec, "spec", spec)
	}
	if version != "" {
		if _, err := semver.StrictNewVersion(version); err != nil {
			return PackageIDSpec{}, zerr.With(zerr.Wrap(err, ErrInvalidPackageIDSpec.Error()), "spec", spec)
		}
	}
	return PackageIDSpec{Name: name, Version: version, URL: strings.TrimSuffix(url, "/")}, nil
}

// Matches reports whether id satisfies every component present in the spec.
func (s PackageIDSpec) Matches(id PackageID) bool {
	if s.Name != id.Name {
		return false
	}
	if s.Version != "" && s.Version != id.Version {
		return false
	}
	if s.URL != "" && s.URL != id.Source.URL() {
		return false
	}
	return true
}

// String renders the spec in its shortest parseable form.
func (s PackageIDSpec) String() string {
	var b strings.Builder
	if s.URL != "" {
		b.WriteString(s.URL)
		if s.Name == path.Base(s.URL) {
			if s.Version != "" {
				b.WriteString("#")
				b.WriteString(s.Version)
			}
			return b.String()
		}
		b.WriteString("#")
	}
	b.WriteString(s.Name)
	if s.Version != "" {
		b.WriteString(":")
		b.WriteString(s.Version)
	}
	return b.String()
}
