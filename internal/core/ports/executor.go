// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/forge/internal/core/domain"
)

// Executor runs compiler, build script and user program invocations.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Exec runs the process to completion.
	//
	// Failures are returned as *domain.ProcessError: Exit is nil when the
	// process could not be started, otherwise it carries the exit code.
	Exec(ctx context.Context, p *domain.ProcessBuilder) error

	// Output runs the process and returns what it wrote to stdout.
	Output(ctx context.Context, p *domain.ProcessBuilder) ([]byte, error)
}

var _ domain.ExecEngine = Executor(nil)
