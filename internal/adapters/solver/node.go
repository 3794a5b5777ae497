package solver

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/lockfile"
	"go.trai.ch/forge/internal/core/ports"
)

// NodeID is the unique identifier for the dependency resolver Graft node.
const NodeID graft.ID = "adapter.solver"

func init() {
	graft.Register(graft.Node[ports.DependencyResolver]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{lockfile.NodeID},
		Run: func(ctx context.Context) (ports.DependencyResolver, error) {
			lockfiles, err := graft.Dep[ports.LockfileStore](ctx)
			if err != nil {
				return nil, err
			}
			return New(lockfiles), nil
		},
	})
}
