// Package compile ties resolution, target selection and build configuration
// together and hands the result to the compile orchestrator.
package compile

import (
	"io"
	"os"

	"go.trai.ch/forge/internal/core/ports"
)

// Pipeline runs one compile invocation. It is not safe for concurrent use.
type Pipeline struct {
	resolver     ports.DependencyResolver
	loader       ports.SourceLoader
	orchestrator ports.Orchestrator
	manifests    ports.ManifestLoader
	logger       ports.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// New creates a pipeline. Programs started by Run and RunTests inherit the
// standard streams of the process unless SetStdio is called.
func New(
	resolver ports.DependencyResolver,
	loader ports.SourceLoader,
	orchestrator ports.Orchestrator,
	manifests ports.ManifestLoader,
	logger ports.Logger,
) *Pipeline {
	return &Pipeline{
		resolver:     resolver,
		loader:       loader,
		orchestrator: orchestrator,
		manifests:    manifests,
		logger:       logger,
		stdin:        os.Stdin,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}
}

// SetStdio sets the streams handed to executed binaries.
func (p *Pipeline) SetStdio(stdin io.Reader, stdout, stderr io.Writer) {
	p.stdin = stdin
	p.stdout = stdout
	p.stderr = stderr
}
