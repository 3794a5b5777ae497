package ports

import (
	"context"

	"go.trai.ch/forge/internal/core/domain"
)

// Orchestrator compiles the selected targets of a resolved package set.
//
//go:generate go run go.uber.org/mock/mockgen -source=orchestrator.go -destination=mocks/mock_orchestrator.go -package=mocks
type Orchestrator interface {
	// CompileTargets builds every requested target together with the
	// libraries it needs. Process failures carry a *domain.ProcessError.
	CompileTargets(ctx context.Context, req *domain.CompileRequest) (*domain.Compilation, error)
}
