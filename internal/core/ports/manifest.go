package ports

import "go.trai.ch/forge/internal/core/domain"

// ManifestLoader reads package manifests.
//
//go:generate go run go.uber.org/mock/mockgen -source=manifest.go -destination=mocks/mock_manifest.go -package=mocks
type ManifestLoader interface {
	// Load parses the manifest at path into a package of the given source.
	Load(path string, source domain.SourceID) (*domain.Package, error)

	// FindRootManifest returns manifestPath made absolute if it is set, or
	// the nearest manifest in cwd or its ancestors.
	FindRootManifest(manifestPath, cwd string) (string, error)
}
