// Package lockfile persists resolved dependency graphs as forge.lock.
package lockfile

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.LockfileStore = (*Store)(nil)

const header = "# This file is automatically generated by forge.\n# It is not intended for manual editing.\n"

// File is the TOML layout of forge.lock.
type File struct {
	Version  int             `toml:"version"`
	Root     LockedPackage   `toml:"root"`
	Packages []LockedPackage `toml:"package,omitempty"`
}

// LockedPackage is one `[root]` or `[[package]]` entry.
type LockedPackage struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Source       string   `toml:"source"`
	Dependencies []string `toml:"dependencies,omitempty"`
}

// Store implements ports.LockfileStore on the filesystem.
type Store struct{}

// NewStore creates a new lockfile store.
func NewStore() *Store {
	return &Store{}
}

// Load returns the lockfile next to the manifest in root, or nil if there is none.
func (s *Store) Load(root string) (*domain.Lockfile, error) {
	path := filepath.Join(root, domain.LockfileName)

	// #nosec G304 -- path is derived from the root manifest
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrLockfileReadFailed.Error()), "path", path)
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrLockfileParseFailed.Error()), "path", path)
	}
	if f.Version == 0 {
		f.Version = domain.LockfileVersion
	}

	lf := &domain.Lockfile{
		Version: f.Version,
		Root:    toDomain(f.Root),
	}
	for _, p := range f.Packages {
		lf.Packages = append(lf.Packages, toDomain(p))
	}
	return lf, nil
}

// Save writes lf next to the manifest in root. The file is only replaced
// when its content changes.
func (s *Store) Save(root string, lf *domain.Lockfile) error {
	path := filepath.Join(root, domain.LockfileName)

	f := File{Version: lf.Version, Root: fromDomain(lf.Root)}
	for _, p := range lf.Packages {
		f.Packages = append(f.Packages, fromDomain(p))
	}

	body, err := toml.Marshal(f)
	if err != nil {
		return zerr.Wrap(err, domain.ErrLockfileWriteFailed.Error())
	}
	data := append([]byte(header), body...)

	// #nosec G304 -- path is derived from the root manifest
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return nil
	}

	tmp, err := os.CreateTemp(root, domain.LockfileName+".*.tmp")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrLockfileWriteFailed.Error()), "path", path)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(err, domain.ErrLockfileWriteFailed.Error()), "path", path)
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrLockfileWriteFailed.Error()), "path", path)
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrLockfileWriteFailed.Error()), "path", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrLockfileWriteFailed.Error()), "path", path)
	}
	return nil
}

func toDomain(p LockedPackage) domain.LockedPackage {
	return domain.LockedPackage{
		Name:         p.Name,
		Version:      p.Version,
		Source:       p.Source,
		Dependencies: p.Dependencies,
	}
}

func fromDomain(p domain.LockedPackage) LockedPackage {
	return LockedPackage{
		Name:         p.Name,
		Version:      p.Version,
		Source:       p.Source,
		Dependencies: p.Dependencies,
	}
}
