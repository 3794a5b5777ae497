package domain

import (
	"slices"

	"go.trai.ch/zerr"
)

// LockfileVersion is the current lockfile format version.
const LockfileVersion = 1

// Lockfile is the persisted form of a Resolve.
type Lockfile struct {
	// Version is the lockfile format version, for future migrations.
	Version int

	// Root is the root package of the resolve.
	Root LockedPackage

	// Packages lists every other package, sorted by id.
	Packages []LockedPackage
}

// LockedPackage is one node of a persisted resolve.
type LockedPackage struct {
	Name         string
	Version      string
	Source       string
	Dependencies []string
}

// NewLockfile captures r.
func NewLockfile(r *Resolve) *Lockfile {
	lf := &Lockfile{Version: LockfileVersion}
	for id := range r.Iter() {
		locked := LockedPackage{
			Name:    id.Name,
			Version: id.Version,
			Source:  id.Source.String(),
		}
		for _, dep := range r.Deps(id) {
			locked.Dependencies = append(locked.Dependencies, dep.LockString())
		}
		if id == r.Root() {
			lf.Root = locked
		} else {
			lf.Packages = append(lf.Packages, locked)
		}
	}
	return lf
}

// Equal reports whether both lockfiles describe the same graph.
func (l *Lockfile) Equal(o *Lockfile) bool {
	if l == nil || o == nil {
		return l == o
	}
	return l.Version == o.Version &&
		lockedEqual(l.Root, o.Root) &&
		slices.EqualFunc(l.Packages, o.Packages, lockedEqual)
}

func lockedEqual(a, b LockedPackage) bool {
	return a.Name == b.Name && a.Version == b.Version && a.Source == b.Source &&
		slices.Equal(a.Dependencies, b.Dependencies)
}

// ToResolve rebuilds the resolve graph. Features are not persisted.
func (l *Lockfile) ToResolve() (*Resolve, error) {
	root, err := l.Root.id()
	if err != nil {
		return nil, err
	}

	b := NewResolveBuilder(root)
	all := append([]LockedPackage{l.Root}, l.Packages...)
	for _, locked := range all {
		id, err := locked.id()
		if err != nil {
			return nil, err
		}
		b.AddNode(id)
		for _, dep := range locked.Dependencies {
			depID, err := ParseLockString(dep)
			if err != nil {
				return nil, err
			}
			b.Link(id, depID)
		}
	}
	return b.Build()
}

func (p LockedPackage) id() (PackageID, error) {
	source, err := ParseSourceID(p.Source)
	if err != nil {
		return PackageID{}, zerr.With(err, "package", p.Name)
	}
	return NewPackageID(p.Name, p.Version, source)
}
