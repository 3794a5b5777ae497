// Package solver provides the reference dependency resolver.
package solver

import (
	"context"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.DependencyResolver = (*Solver)(nil)

var (
	errNoMatchingPackage = zerr.New("no matching package found")
	errConflict          = zerr.New("package is already activated with a version that does not satisfy the requirement")
)

// Solver resolves dependencies depth-first in declaration order, preferring
// previously locked versions and otherwise the highest matching one.
type Solver struct {
	lockfiles ports.LockfileStore
}

// New creates a new Solver that persists baseline resolutions to lockfiles.
func New(lockfiles ports.LockfileStore) *Solver {
	return &Solver{lockfiles: lockfiles}
}

// ResolvePackage resolves every dependency and feature of root, using the
// lockfile next to its manifest as the previous resolution and rewriting it
// when the result changes.
func (s *Solver) ResolvePackage(
	ctx context.Context,
	registry ports.PackageRegistry,
	root *domain.Package,
) (*domain.Resolve, error) {
	locked, err := s.lockfiles.Load(root.Root())
	if err != nil {
		return nil, err
	}

	var previous *domain.Resolve
	if locked != nil {
		previous, err = locked.ToResolve()
		if err != nil {
			return nil, zerr.Wrap(err, domain.ErrLockfileParseFailed.Error())
		}
	}

	resolve, err := s.ResolveWithPrevious(ctx, registry, root, ports.MethodEverything(), previous)
	if err != nil {
		return nil, err
	}

	updated := domain.NewLockfile(resolve)
	if !updated.Equal(locked) {
		if err := s.lockfiles.Save(root.Root(), updated); err != nil {
			return nil, err
		}
	}
	return resolve, nil
}

// ResolveWithPrevious resolves root with method, preferring the versions
// chosen by previous when they still satisfy the requirements.
func (s *Solver) ResolveWithPrevious(
	ctx context.Context,
	registry ports.PackageRegistry,
	root *domain.Package,
	method ports.Method,
	previous *domain.Resolve,
) (*domain.Resolve, error) {
	r := &run{
		ctx:       ctx,
		registry:  registry,
		previous:  previous,
		method:    method,
		rootID:    root.ID(),
		builder:   domain.NewResolveBuilder(root.ID()),
		summaries: map[domain.PackageID]domain.Summary{root.ID(): root.Summary()},
		requested: make(map[domain.PackageID]map[string]struct{}),
		enabled:   make(map[domain.PackageID]map[string]struct{}),
		activated: map[activationKey]domain.PackageID{
			{name: root.Name(), source: root.ID().Source}: root.ID(),
		},
	}

	requested := rootFeatures(root.Summary(), method)
	if err := r.activate(root.ID(), requested); err != nil {
		return nil, err
	}

	for id, set := range r.enabled {
		r.builder.AddFeatures(id, slices.Collect(maps.Keys(set))...)
	}
	return r.builder.Build()
}

func rootFeatures(summary domain.Summary, method ports.Method) []string {
	if method.Everything {
		features := slices.Collect(maps.Keys(summary.Features))
		for _, dep := range summary.Dependencies {
			if dep.Optional {
				features = append(features, dep.Name)
			}
		}
		slices.Sort(features)
		return features
	}

	features := slices.Clone(method.Features)
	if method.UsesDefaultFeatures {
		if _, ok := summary.Features["default"]; ok {
			features = append(features, "default")
		}
	}
	return features
}

type activationKey struct {
	name   string
	source domain.SourceID
}

type run struct {
	ctx      context.Context
	registry ports.PackageRegistry
	previous *domain.Resolve
	method   ports.Method
	rootID   domain.PackageID
	builder  *domain.ResolveBuilder

	summaries map[domain.PackageID]domain.Summary
	requested map[domain.PackageID]map[string]struct{}
	enabled   map[domain.PackageID]map[string]struct{}
	activated map[activationKey]domain.PackageID
}

// activate adds requested features to id and, when its request set grew or
// id is new, walks its enabled dependencies. Request sets only grow, so the
// recursion reaches a fixpoint.
func (r *run) activate(id domain.PackageID, requested []string) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}

	set, seen := r.requested[id]
	if !seen {
		set = make(map[string]struct{})
		r.requested[id] = set
	}
	grew := !seen
	for _, f := range requested {
		if _, ok := set[f]; !ok {
			set[f] = struct{}{}
			grew = true
		}
	}
	if !grew {
		return nil
	}

	summary := r.summaries[id]
	enabled, depFeatures, err := expandFeatures(summary, set)
	if err != nil {
		return err
	}
	r.enabled[id] = enabled

	for _, dep := range summary.Dependencies {
		if dep.Kind == domain.DepDev && (id != r.rootID || !r.method.DevDeps) {
			continue
		}
		if dep.Optional {
			if _, on := enabled[dep.Name]; !on {
				continue
			}
		}

		child, err := r.choose(id, dep)
		if err != nil {
			return err
		}
		r.builder.Link(id, child)

		childFeatures := slices.Clone(dep.Features)
		childFeatures = append(childFeatures, depFeatures[dep.Name]...)
		if dep.DefaultFeatures {
			if _, ok := r.summaries[child].Features["default"]; ok {
				childFeatures = append(childFeatures, "default")
			}
		}
		if err := r.activate(child, childFeatures); err != nil {
			return err
		}
	}
	return nil
}

// choose returns the package satisfying dep, reusing an existing activation
// of the same name and source.
func (r *run) choose(parent domain.PackageID, dep domain.Dependency) (domain.PackageID, error) {
	key := activationKey{name: dep.Name, source: dep.Source}
	if existing, ok := r.activated[key]; ok {
		if dep.MatchesVersion(existing) {
			return existing, nil
		}
		err := zerr.With(errConflict, "package", existing.String())
		err = zerr.With(err, "requirement", dep.Req)
		return domain.PackageID{}, zerr.With(err, "required_by", parent.String())
	}

	summaries, err := r.registry.Query(r.ctx, dep)
	if err != nil {
		return domain.PackageID{}, zerr.With(err, "required_by", parent.String())
	}

	var candidates []domain.Summary
	for _, s := range summaries {
		if s.ID.Name == dep.Name && dep.MatchesVersion(s.ID) {
			candidates = append(candidates, s)
		}
	}

	best, ok := r.pick(candidates)
	if !ok {
		err := zerr.With(errNoMatchingPackage, "dependency", dep.Name)
		err = zerr.With(err, "requirement", requirement(dep))
		return domain.PackageID{}, zerr.With(err, "required_by", parent.String())
	}

	r.activated[key] = best.ID
	r.summaries[best.ID] = best
	return best.ID, nil
}

// pick prefers a candidate locked by the previous resolution, then the
// highest non-yanked version.
func (r *run) pick(candidates []domain.Summary) (domain.Summary, bool) {
	if r.previous != nil {
		for _, c := range candidates {
			if r.previous.Contains(c.ID) {
				return c, true
			}
		}
	}

	var best domain.Summary
	found := false
	for _, c := range candidates {
		if c.Yanked {
			continue
		}
		if !found || domain.ComparePackageIDs(c.ID, best.ID) > 0 {
			best, found = c, true
		}
	}
	return best, found
}

// expandFeatures computes the closure of requested within summary. It
// returns every enabled feature (including optional dependencies turned on
// by name) and the features forwarded to dependencies through "dep/feature".
func expandFeatures(
	summary domain.Summary,
	requested map[string]struct{},
) (map[string]struct{}, map[string][]string, error) {
	optional := make(map[string]bool)
	for _, dep := range summary.Dependencies {
		if dep.Optional {
			optional[dep.Name] = true
		}
	}
	isDep := func(name string) bool {
		return slices.ContainsFunc(summary.Dependencies, func(d domain.Dependency) bool { return d.Name == name })
	}

	enabled := make(map[string]struct{})
	forwarded := make(map[string][]string)
	var unknown []string

	var visit func(f string)
	visit = func(f string) {
		if depName, depFeature, ok := strings.Cut(f, "/"); ok {
			if !isDep(depName) {
				unknown = append(unknown, f)
				return
			}
			if optional[depName] {
				visit(depName)
			}
			forwarded[depName] = append(forwarded[depName], depFeature)
			return
		}

		if _, done := enabled[f]; done {
			return
		}
		members, isFeature := summary.Features[f]
		switch {
		case isFeature:
			enabled[f] = struct{}{}
			for _, m := range members {
				visit(m)
			}
		case optional[f]:
			enabled[f] = struct{}{}
		default:
			unknown = append(unknown, f)
		}
	}

	for _, f := range slices.Sorted(maps.Keys(requested)) {
		visit(f)
	}

	if len(unknown) > 0 {
		slices.Sort(unknown)
		unknown = slices.Compact(unknown)
		return nil, nil, zerr.New("Package `" + summary.ID.String() + "` does not have these features: `" +
			strings.Join(unknown, ", ") + "`")
	}
	return enabled, forwarded, nil
}

func requirement(dep domain.Dependency) string {
	if dep.Req == "" {
		return "*"
	}
	return dep.Req
}
