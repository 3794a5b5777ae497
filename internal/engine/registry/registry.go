// Package registry aggregates the sources of one resolution behind a single lookup.
package registry

import (
	"context"
	"slices"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.PackageRegistry = (*Registry)(nil)

// Registry routes queries to the source of each dependency. Path overrides
// take precedence over every other source.
type Registry struct {
	loader ports.SourceLoader

	sources map[domain.SourceID]ports.Source

	overrides       []domain.SourceID
	overrideSources map[domain.SourceID]ports.Source
}

// New creates a registry that loads unknown sources through loader.
func New(loader ports.SourceLoader) *Registry {
	return &Registry{
		loader:          loader,
		sources:         make(map[domain.SourceID]ports.Source),
		overrideSources: make(map[domain.SourceID]ports.Source),
	}
}

// AddPreloaded registers a source that is already up to date and must not be
// fetched again.
func (r *Registry) AddPreloaded(id domain.SourceID, src ports.Source) {
	r.sources[id] = src
}

// AddOverride registers src as an override for id. Registering the same id
// again replaces the source but keeps its original position.
func (r *Registry) AddOverride(id domain.SourceID, src ports.Source) {
	if _, ok := r.overrideSources[id]; !ok {
		r.overrides = append(r.overrides, id)
	}
	r.overrideSources[id] = src
}

// Overrides returns the override ids in registration order.
func (r *Registry) Overrides() []domain.SourceID {
	return slices.Clone(r.overrides)
}

// Query returns the candidates for dep. The first override source that knows
// a package of that name wins; otherwise the dependency's own source answers.
func (r *Registry) Query(ctx context.Context, dep domain.Dependency) ([]domain.Summary, error) {
	for _, id := range r.overrides {
		summaries, err := r.overrideSources[id].Query(ctx, dep)
		if err != nil {
			return nil, zerr.With(err, "override", id.Display())
		}
		if len(summaries) > 0 {
			return summaries, nil
		}
	}

	src, err := r.ensureLoaded(ctx, dep.Source)
	if err != nil {
		return nil, err
	}
	return src.Query(ctx, dep)
}

// GetResolvedPackages downloads and loads every package of resolve.
func (r *Registry) GetResolvedPackages(ctx context.Context, resolve *domain.Resolve) (*domain.PackageSet, error) {
	bySource := make(map[domain.SourceID][]domain.PackageID)
	var order []domain.SourceID
	for id := range resolve.Iter() {
		if _, ok := bySource[id.Source]; !ok {
			order = append(order, id.Source)
		}
		bySource[id.Source] = append(bySource[id.Source], id)
	}

	var pkgs []*domain.Package
	for _, sourceID := range order {
		src, err := r.source(ctx, sourceID)
		if err != nil {
			return nil, err
		}

		ids := bySource[sourceID]
		if err := src.Download(ctx, ids); err != nil {
			return nil, zerr.With(err, "source", sourceID.Display())
		}
		loaded, err := src.Get(ctx, ids)
		if err != nil {
			return nil, zerr.With(err, "source", sourceID.Display())
		}
		pkgs = append(pkgs, loaded...)
	}
	return domain.NewPackageSet(pkgs), nil
}

// source returns the source serving packages of id, preferring overrides.
func (r *Registry) source(ctx context.Context, id domain.SourceID) (ports.Source, error) {
	if src, ok := r.overrideSources[id]; ok {
		return src, nil
	}
	return r.ensureLoaded(ctx, id)
}

// ensureLoaded loads and updates the source of id on first use.
func (r *Registry) ensureLoaded(ctx context.Context, id domain.SourceID) (ports.Source, error) {
	if src, ok := r.sources[id]; ok {
		return src, nil
	}

	src, err := r.loader.Load(id)
	if err != nil {
		return nil, zerr.With(err, "source", id.Display())
	}
	if err := src.Update(ctx); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrSourceUpdateFailed.Error()), "source", id.Display())
	}
	r.sources[id] = src
	return src, nil
}
