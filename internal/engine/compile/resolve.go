package compile

import (
	"context"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/registry"
	"go.trai.ch/zerr"
)

// ResolveDependencies resolves root in two passes. The first pass resolves
// every declared dependency without overrides and serves as the previous
// resolution of the second, which applies path overrides and the requested
// features. Anchoring the second pass keeps unrelated versions stable.
func (p *Pipeline) ResolveDependencies(
	ctx context.Context,
	root *domain.Package,
	cfg ports.Config,
	preloaded ports.Source,
	features []string,
	noDefaultFeatures bool,
) (*domain.PackageSet, *domain.Resolve, error) {
	reg := registry.New(p.loader)
	if preloaded != nil {
		reg.AddPreloaded(preloaded.ID(), preloaded)
	}

	baseline, err := p.resolver.ResolvePackage(ctx, reg, root)
	if err != nil {
		return nil, nil, zerr.Wrap(err, domain.ErrResolutionFailed.Error())
	}

	if err := addOverrides(ctx, reg, root.Root(), cfg, p.loader); err != nil {
		return nil, nil, err
	}

	method := ports.Method{
		DevDeps:             true,
		Features:            features,
		UsesDefaultFeatures: !noDefaultFeatures,
	}
	resolved, err := p.resolver.ResolveWithPrevious(ctx, reg, root, method, baseline)
	if err != nil {
		return nil, nil, zerr.Wrap(err, domain.ErrResolutionFailed.Error())
	}

	pkgs, err := reg.GetResolvedPackages(ctx, resolved)
	if err != nil {
		return nil, nil, err
	}
	return pkgs, resolved, nil
}
