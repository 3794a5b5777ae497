package sources

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/adapters/logger"
	"go.trai.ch/forge/internal/adapters/manifest"
	"go.trai.ch/forge/internal/core/ports"
)

// NodeID is the unique identifier for the source loader factory Graft node.
const NodeID graft.ID = "adapter.source_loader_factory"

func init() {
	graft.Register(graft.Node[ports.SourceLoaderFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{manifest.NodeID, fs.WalkerNodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.SourceLoaderFactory, error) {
			manifests, err := graft.Dep[ports.ManifestLoader](ctx)
			if err != nil {
				return nil, err
			}
			walker, err := graft.Dep[*fs.Walker](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewFactory(manifests, walker, log), nil
		},
	})
}
