package scheduler

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/cas"                //nolint:depguard // Wired in engine wiring
	"go.trai.ch/forge/internal/adapters/fs"                 //nolint:depguard // Wired in engine wiring
	"go.trai.ch/forge/internal/adapters/logger"             //nolint:depguard // Wired in engine wiring
	"go.trai.ch/forge/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/forge/internal/core/ports"
)

// NodeID is the unique identifier for the scheduler Graft node.
const NodeID graft.ID = "engine.scheduler"

func init() {
	graft.Register(graft.Node[*Scheduler]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			fs.HasherNodeID,
			fs.VerifierNodeID,
			progrock.NodeID,
			logger.NodeID,
			cas.NodeID,
		},
		Run: func(ctx context.Context) (*Scheduler, error) {
			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}

			verifier, err := graft.Dep[ports.OutputVerifier](ctx)
			if err != nil {
				return nil, err
			}

			telemetry, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			openStore, err := graft.Dep[ports.FingerprintStoreOpener](ctx)
			if err != nil {
				return nil, err
			}

			return NewScheduler(hasher, verifier, telemetry, log, openStore), nil
		},
	})
}
