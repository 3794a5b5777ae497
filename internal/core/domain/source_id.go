package domain

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

// SourceKind distinguishes the closed set of source variants.
type SourceKind int

const (
	// SourceKindPath is a directory on the local filesystem.
	SourceKindPath SourceKind = iota + 1
	// SourceKindRegistry is a remote package registry.
	SourceKindRegistry
)

const (
	pathPrefix     = "path+"
	registryPrefix = "registry+"
	fileScheme     = "file://"
)

// String returns the prefix used in canonical source id strings.
func (k SourceKind) String() string {
	switch k {
	case SourceKindPath:
		return "path"
	case SourceKindRegistry:
		return "registry"
	default:
		return "unknown"
	}
}

// SourceID canonically identifies a source of packages.
// It is comparable and can be used as a map key.
type SourceID struct {
	kind SourceKind
	url  string
}

// NewPathSourceID returns the id of the directory at path.
// The path is made absolute and symlinks are evaluated, so two spellings of
// the same directory share an id.
func NewPathSourceID(path string) (SourceID, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return SourceID{}, zerr.With(zerr.Wrap(err, ErrInvalidSourceID.Error()), "path", path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return SourceID{kind: SourceKindPath, url: fileScheme + filepath.ToSlash(filepath.Clean(abs))}, nil
}

// NewRegistrySourceID returns the id of the registry served at url.
func NewRegistrySourceID(url string) SourceID {
	return SourceID{kind: SourceKindRegistry, url: strings.TrimSuffix(url, "/")}
}

// ParseSourceID parses the canonical string form produced by String.
func ParseSourceID(s string) (SourceID, error) {
	switch {
	case strings.HasPrefix(s, pathPrefix+fileScheme):
		return SourceID{kind: SourceKindPath, url: strings.TrimPrefix(s, pathPrefix)}, nil
	case strings.HasPrefix(s, registryPrefix):
		return NewRegistrySourceID(strings.TrimPrefix(s, registryPrefix)), nil
	default:
		return SourceID{}, zerr.With(ErrInvalidSourceID, "source_id", s)
	}
}

// Kind returns the variant of the source.
func (s SourceID) Kind() SourceKind { return s.kind }

// URL returns the location of the source.
func (s SourceID) URL() string { return s.url }

// IsZero reports whether the id is unset.
func (s SourceID) IsZero() bool { return s.kind == 0 }

// IsPath reports whether the id names a local directory.
func (s SourceID) IsPath() bool { return s.kind == SourceKindPath }

// IsRegistry reports whether the id names a remote registry.
func (s SourceID) IsRegistry() bool { return s.kind == SourceKindRegistry }

// Path returns the local directory of a path source, or "" for other kinds.
func (s SourceID) Path() string {
	if s.kind != SourceKindPath {
		return ""
	}
	return filepath.FromSlash(strings.TrimPrefix(s.url, fileScheme))
}

// String returns the canonical string form, e.g. "path+file:///src/foo".
func (s SourceID) String() string {
	if s.IsZero() {
		return ""
	}
	return s.kind.String() + "+" + s.url
}

// Display returns the human form used in status lines.
func (s SourceID) Display() string {
	if s.IsPath() {
		return s.Path()
	}
	return s.String()
}

// ShortHash returns a stable hex digest of the id, used for cache directory names.
func (s SourceID) ShortHash() string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s.String()))
}
