// Package sources implements the path and registry package sources.
package sources

import (
	"context"
	"path/filepath"
	"slices"
	"sync"

	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Source = (*PathSource)(nil)

// scanIgnores are the entries skipped while scanning for manifests.
var scanIgnores = []string{domain.TargetDirName, ".*"}

// PathSource serves the packages found in a local directory.
type PathSource struct {
	id        domain.SourceID
	root      string
	recursive bool
	manifests ports.ManifestLoader
	walker    *fs.Walker

	mu       sync.Mutex
	loaded   bool
	packages []*domain.Package
}

// NewPathSource returns a source serving the single package at root.
func NewPathSource(id domain.SourceID, root string, manifests ports.ManifestLoader) *PathSource {
	return &PathSource{id: id, root: root, manifests: manifests}
}

// NewRecursivePathSource returns a source serving every package below root.
func NewRecursivePathSource(
	id domain.SourceID,
	root string,
	manifests ports.ManifestLoader,
	walker *fs.Walker,
) *PathSource {
	return &PathSource{id: id, root: root, recursive: true, manifests: manifests, walker: walker}
}

// ID returns the id the source serves.
func (s *PathSource) ID() domain.SourceID { return s.id }

// Update reads the manifests below the source root. Only the first call does any work.
func (s *PathSource) Update(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *PathSource) load() error {
	if s.loaded {
		return nil
	}

	var paths []string
	if s.recursive {
		for path := range s.walker.FindFiles(s.root, domain.ManifestFileName, scanIgnores) {
			paths = append(paths, path)
		}
	} else {
		paths = []string{filepath.Join(s.root, domain.ManifestFileName)}
	}

	seen := make(map[domain.PackageID]struct{}, len(paths))
	for _, path := range paths {
		pkg, err := s.manifests.Load(path, s.id)
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrSourceUpdateFailed.Error()), "source", s.id.Display())
		}
		// The first package found for an id wins.
		if _, dup := seen[pkg.ID()]; dup {
			continue
		}
		seen[pkg.ID()] = struct{}{}
		s.packages = append(s.packages, pkg)
	}

	s.loaded = true
	return nil
}

// Query returns the summaries of the packages named like dep.
func (s *PathSource) Query(ctx context.Context, dep domain.Dependency) ([]domain.Summary, error) {
	if err := s.Update(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Summary
	for _, pkg := range s.packages {
		if pkg.Name() == dep.Name {
			out = append(out, pkg.Summary())
		}
	}
	return out, nil
}

// Download is a no-op: path packages are already local.
func (s *PathSource) Download(_ context.Context, _ []domain.PackageID) error {
	return nil
}

// Get returns the loaded packages for ids.
func (s *PathSource) Get(ctx context.Context, ids []domain.PackageID) ([]*domain.Package, error) {
	if err := s.Update(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Package, 0, len(ids))
	for _, id := range ids {
		idx := slices.IndexFunc(s.packages, func(p *domain.Package) bool { return p.ID() == id })
		if idx < 0 {
			return nil, zerr.With(domain.ErrPackageNotFound, "package", id.String())
		}
		out = append(out, s.packages[idx])
	}
	return out, nil
}
