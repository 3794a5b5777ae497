package ports

import (
	"context"

	"go.trai.ch/forge/internal/core/domain"
)

// Method describes what the resolver activates for the root package.
type Method struct {
	// Everything activates all dependencies and all features.
	Everything bool
	// DevDeps includes dev-dependencies of the root package.
	DevDeps bool
	// Features lists features requested on top of the defaults.
	Features []string
	// UsesDefaultFeatures activates the `default` feature.
	UsesDefaultFeatures bool
}

// MethodEverything returns the method used for baseline resolution.
func MethodEverything() Method {
	return Method{Everything: true, DevDeps: true, UsesDefaultFeatures: true}
}

// DependencyResolver selects concrete package versions for a root package.
//
//go:generate go run go.uber.org/mock/mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks
type DependencyResolver interface {
	// ResolvePackage performs a baseline resolution of root's declared
	// dependencies, reusing and refreshing any persisted previous resolution.
	ResolvePackage(ctx context.Context, registry PackageRegistry, root *domain.Package) (*domain.Resolve, error)

	// ResolveWithPrevious resolves root with method, preferring the versions
	// chosen by previous when they still satisfy the requirements.
	ResolveWithPrevious(
		ctx context.Context,
		registry PackageRegistry,
		root *domain.Package,
		method Method,
		previous *domain.Resolve,
	) (*domain.Resolve, error)
}

// LockfileStore persists resolutions next to the root manifest.
type LockfileStore interface {
	// Load returns the lockfile of the package in root, or nil if there is none.
	Load(root string) (*domain.Lockfile, error)
	// Save writes the lockfile of the package in root.
	Save(root string, lockfile *domain.Lockfile) error
}
