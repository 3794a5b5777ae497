package domain

import (
	"slices"

	"go.trai.ch/zerr"
)

// PackageSet holds the loaded package for every node of a resolve.
type PackageSet struct {
	packages map[PackageID]*Package
	ids      []PackageID
}

// NewPackageSet indexes pkgs by id. A later package with the same id replaces an earlier one.
func NewPackageSet(pkgs []*Package) *PackageSet {
	s := &PackageSet{packages: make(map[PackageID]*Package, len(pkgs))}
	for _, p := range pkgs {
		if _, ok := s.packages[p.ID()]; !ok {
			s.ids = append(s.ids, p.ID())
		}
		s.packages[p.ID()] = p
	}
	slices.SortFunc(s.ids, ComparePackageIDs)
	return s
}

// Len returns the number of packages.
func (s *PackageSet) Len() int { return len(s.ids) }

// Get returns the package with the given id.
func (s *PackageSet) Get(id PackageID) (*Package, error) {
	p, ok := s.packages[id]
	if !ok {
		return nil, zerr.With(ErrPackageNotFound, "package", id.String())
	}
	return p, nil
}

// Packages returns every package sorted by id.
func (s *PackageSet) Packages() []*Package {
	out := make([]*Package, len(s.ids))
	for i, id := range s.ids {
		out[i] = s.packages[id]
	}
	return out
}

// Query returns the single package matching spec.
func (s *PackageSet) Query(spec string) (*Package, error) {
	id, err := queryIDs(spec, s.ids)
	if err != nil {
		return nil, err
	}
	return s.packages[id], nil
}
