package domain

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Resolve is the resolved dependency graph. It is immutable: a second
// resolution pass produces a new Resolve.
type Resolve struct {
	root     PackageID
	ids      []PackageID
	graph    map[PackageID][]PackageID
	features map[PackageID][]string
	order    []PackageID
}

// ResolveBuilder accumulates nodes, edges and features before Build freezes them.
type ResolveBuilder struct {
	root     PackageID
	nodes    map[PackageID]map[PackageID]struct{}
	features map[PackageID]map[string]struct{}
}

// NewResolveBuilder starts a graph rooted at root.
func NewResolveBuilder(root PackageID) *ResolveBuilder {
	b := &ResolveBuilder{
		root:     root,
		nodes:    make(map[PackageID]map[PackageID]struct{}),
		features: make(map[PackageID]map[string]struct{}),
	}
	b.AddNode(root)
	return b
}

// AddNode adds id without edges.
func (b *ResolveBuilder) AddNode(id PackageID) {
	if _, ok := b.nodes[id]; !ok {
		b.nodes[id] = make(map[PackageID]struct{})
	}
}

// Link adds an edge from a package to one of its dependencies.
func (b *ResolveBuilder) Link(from, to PackageID) {
	b.AddNode(from)
	b.AddNode(to)
	b.nodes[from][to] = struct{}{}
}

// AddFeatures records activated features of id.
func (b *ResolveBuilder) AddFeatures(id PackageID, features ...string) {
	set, ok := b.features[id]
	if !ok {
		set = make(map[string]struct{})
		b.features[id] = set
	}
	for _, f := range features {
		set[f] = struct{}{}
	}
}

// Build validates the graph for cycles and returns the frozen Resolve.
func (b *ResolveBuilder) Build() (*Resolve, error) {
	r := &Resolve{
		root:     b.root,
		graph:    make(map[PackageID][]PackageID, len(b.nodes)),
		features: make(map[PackageID][]string, len(b.features)),
	}

	for id, deps := range b.nodes {
		r.ids = append(r.ids, id)
		list := make([]PackageID, 0, len(deps))
		for dep := range deps {
			list = append(list, dep)
		}
		slices.SortFunc(list, ComparePackageIDs)
		r.graph[id] = list
	}
	slices.SortFunc(r.ids, ComparePackageIDs)

	for id, set := range b.features {
		list := make([]string, 0, len(set))
		for f := range set {
			list = append(list, f)
		}
		slices.Sort(list)
		r.features[id] = list
	}

	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// validate runs a depth-first topological sort, filling order with
// dependencies before dependents.
func (r *Resolve) validate() error {
	r.order = make([]PackageID, 0, len(r.ids))
	visited := make(map[PackageID]int) // 0: unvisited, 1: visiting, 2: visited
	var path []PackageID

	var visit func(u PackageID) error
	visit = func(u PackageID) error {
		visited[u] = 1
		path = append(path, u)

		for _, dep := range r.graph[u] {
			if visited[dep] == 1 {
				return buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		r.order = append(r.order, u)
		return nil
	}

	for _, id := range r.ids {
		if visited[id] == 0 {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildCycleError(path []PackageID, dep PackageID) error {
	start := slices.Index(path, dep)
	names := make([]string, 0, len(path)-start+1)
	for _, id := range path[start:] {
		names = append(names, id.Name+" v"+id.Version)
	}
	names = append(names, dep.Name+" v"+dep.Version)
	return zerr.With(ErrCycleDetected, "cycle", strings.Join(names, " -> "))
}

// Root returns the id of the root package.
func (r *Resolve) Root() PackageID { return r.root }

// Len returns the number of packages in the graph.
func (r *Resolve) Len() int { return len(r.ids) }

// Iter yields every package id in sorted order.
func (r *Resolve) Iter() iter.Seq[PackageID] {
	return func(yield func(PackageID) bool) {
		for _, id := range r.ids {
			if !yield(id) {
				return
			}
		}
	}
}

// TopologicalOrder returns the ids with every dependency before its dependents.
func (r *Resolve) TopologicalOrder() []PackageID {
	return slices.Clone(r.order)
}

// Contains reports whether id is part of the graph.
func (r *Resolve) Contains(id PackageID) bool {
	_, ok := r.graph[id]
	return ok
}

// Deps returns the direct dependencies of id.
func (r *Resolve) Deps(id PackageID) []PackageID {
	return slices.Clone(r.graph[id])
}

// Features returns the activated features of id.
func (r *Resolve) Features(id PackageID) []string {
	return slices.Clone(r.features[id])
}

// Query returns the single package id matching spec.
func (r *Resolve) Query(spec string) (PackageID, error) {
	return queryIDs(spec, r.ids)
}

func queryIDs(spec string, ids []PackageID) (PackageID, error) {
	parsed, err := ParsePackageIDSpec(spec)
	if err != nil {
		return PackageID{}, err
	}

	var matches []PackageID
	for _, id := range ids {
		if parsed.Matches(id) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return PackageID{}, zerr.With(ErrSpecNotFound, "spec", spec)
	case 1:
		return matches[0], nil
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "There are multiple `%s` packages in your project, and the specification `%s` is ambiguous.\n", parsed.Name, spec)
		b.WriteString("Please re-run this command with `-p <spec>` where `<spec>` is one of the following:")
		for _, id := range matches {
			b.WriteString("\n  ")
			b.WriteString(PackageIDSpec{Name: id.Name, Version: id.Version}.String())
		}
		return PackageID{}, zerr.With(zerr.New(b.String()), "spec", spec)
	}
}
