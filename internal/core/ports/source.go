package ports

import (
	"context"

	"go.trai.ch/forge/internal/core/domain"
)

// Source provides package metadata and contents for one SourceID.
//
//go:generate go run go.uber.org/mock/mockgen -source=source.go -destination=mocks/mock_source.go -package=mocks
type Source interface {
	// ID returns the id the source serves.
	ID() domain.SourceID
	// Update refreshes the source's view of available packages.
	Update(ctx context.Context) error
	// Query returns the summaries of every package named like dep.
	// Version filtering is left to the caller.
	Query(ctx context.Context, dep domain.Dependency) ([]domain.Summary, error)
	// Download makes the given packages available locally.
	Download(ctx context.Context, ids []domain.PackageID) error
	// Get loads downloaded packages.
	Get(ctx context.Context, ids []domain.PackageID) ([]*domain.Package, error)
}

// SourceLoader constructs sources from their ids.
type SourceLoader interface {
	// Load returns the source for id: a single-package path source or a registry.
	Load(id domain.SourceID) (Source, error)
	// Recursive returns a path source that serves every package below path.
	Recursive(path string, id domain.SourceID) (Source, error)
}

// SourceLoaderFactory creates the source loader of one invocation from its configuration.
type SourceLoaderFactory interface {
	ForConfig(cfg Config) (SourceLoader, error)
}

// PackageRegistry is the aggregated lookup the dependency resolver queries.
type PackageRegistry interface {
	// Query returns candidate summaries for dep, override sources first.
	Query(ctx context.Context, dep domain.Dependency) ([]domain.Summary, error)
}
