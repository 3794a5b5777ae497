package sources

import (
	"net/http"

	"go.trai.ch/forge/internal/adapters/config"
	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var (
	_ ports.SourceLoader        = (*Loader)(nil)
	_ ports.SourceLoaderFactory = (*Factory)(nil)
)

// Loader builds sources for one invocation.
type Loader struct {
	manifests ports.ManifestLoader
	walker    *fs.Walker
	logger    ports.Logger
	home      string
	registry  config.RegistrySettings
	client    *http.Client
}

// NewLoader creates a source loader. Registry sources share client.
func NewLoader(
	manifests ports.ManifestLoader,
	walker *fs.Walker,
	logger ports.Logger,
	home string,
	registry config.RegistrySettings,
	client *http.Client,
) *Loader {
	return &Loader{
		manifests: manifests,
		walker:    walker,
		logger:    logger,
		home:      home,
		registry:  registry,
		client:    client,
	}
}

// Load returns the source for id: the single package of a path source, or a registry.
func (l *Loader) Load(id domain.SourceID) (ports.Source, error) {
	switch id.Kind() {
	case domain.SourceKindPath:
		return NewPathSource(id, id.Path(), l.manifests), nil
	case domain.SourceKindRegistry:
		opts := RegistryOptions{
			Home:    l.home,
			Offline: l.registry.Offline,
			Client:  l.client,
		}
		// `registry.index` redirects the default registry only.
		if id == domain.DefaultRegistryID() {
			opts.Index = l.registry.Index
		}
		return NewRegistrySource(id, opts, l.manifests, l.logger), nil
	default:
		return nil, zerr.With(domain.ErrInvalidSourceID, "source_id", id.String())
	}
}

// Recursive returns a path source that serves every package below path.
func (l *Loader) Recursive(path string, id domain.SourceID) (ports.Source, error) {
	if !id.IsPath() {
		return nil, zerr.With(domain.ErrInvalidSourceID, "source_id", id.String())
	}
	return NewRecursivePathSource(id, path, l.manifests, l.walker), nil
}

// Factory creates per-invocation loaders from the configuration.
type Factory struct {
	manifests ports.ManifestLoader
	walker    *fs.Walker
	logger    ports.Logger
}

// NewFactory creates a new Factory.
func NewFactory(manifests ports.ManifestLoader, walker *fs.Walker, logger ports.Logger) *Factory {
	return &Factory{manifests: manifests, walker: walker, logger: logger}
}

// ForConfig returns a loader using the `[registry]` settings of cfg.
func (f *Factory) ForConfig(cfg ports.Config) (ports.SourceLoader, error) {
	settings, err := config.Registry(cfg)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: settings.Timeout}
	return NewLoader(f.manifests, f.walker, f.logger, cfg.Home(), settings, client), nil
}
