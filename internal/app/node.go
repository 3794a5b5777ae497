package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/config"             //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/logger"             //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/manifest"           //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/shell"              //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/solver"             //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/sources"            //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/scheduler"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components contains the initialized application components the CLI layer needs.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			sources.NodeID,
			solver.NodeID,
			manifest.NodeID,
			shell.NodeID,
			scheduler.NodeID,
			progrock.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return &Components{App: app, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	factory, err := graft.Dep[ports.SourceLoaderFactory](ctx)
	if err != nil {
		return nil, err
	}

	resolver, err := graft.Dep[ports.DependencyResolver](ctx)
	if err != nil {
		return nil, err
	}

	manifests, err := graft.Dep[ports.ManifestLoader](ctx)
	if err != nil {
		return nil, err
	}

	executor, err := graft.Dep[ports.Executor](ctx)
	if err != nil {
		return nil, err
	}

	sched, err := graft.Dep[*scheduler.Scheduler](ctx)
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

	return New(loader, factory, resolver, manifests, executor, sched, telemetry, log), nil
}
