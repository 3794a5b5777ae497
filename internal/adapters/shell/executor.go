// Package shell provides the process executor adapter.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
)

var _ ports.Executor = (*Executor)(nil)

// Executor implements ports.Executor using os/exec.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{
		logger: logger,
	}
}

// Exec runs the process described by p to completion.
//
// The environment is os.Environ() overlaid with p.Env. A process killed by
// a signal reports an exit code of -1.
func (e *Executor) Exec(ctx context.Context, p *domain.ProcessBuilder) error {
	cmd := e.command(ctx, p)
	cmd.Stdout = p.Stdout
	cmd.Stderr = p.Stderr
	return e.run(cmd, p)
}

// Output runs the process and returns its standard output. Standard error
// goes to p.Stderr.
func (e *Executor) Output(ctx context.Context, p *domain.ProcessBuilder) ([]byte, error) {
	var stdout bytes.Buffer
	cmd := e.command(ctx, p)
	if p.Stdout != nil {
		cmd.Stdout = io.MultiWriter(&stdout, p.Stdout)
	} else {
		cmd.Stdout = &stdout
	}
	cmd.Stderr = p.Stderr
	if err := e.run(cmd, p); err != nil {
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

func (e *Executor) command(ctx context.Context, p *domain.ProcessBuilder) *exec.Cmd {
	cmdEnv := resolveEnvironment(os.Environ(), p.Env)

	// Resolve the executable path using the new environment's PATH
	executable := p.Program
	if !filepath.IsAbs(p.Program) && !strings.ContainsRune(p.Program, filepath.Separator) {
		if lp, err := lookPath(p.Program, cmdEnv); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, p.Args...) //nolint:gosec // process comes from the build plan

	// exec.CommandContext sets Args[0] to the executable path; keep the name as invoked.
	if len(cmd.Args) > 0 {
		cmd.Args[0] = p.Program
	}

	cmd.Dir = p.Dir
	cmd.Env = cmdEnv
	cmd.Stdin = p.Stdin
	return cmd
}

func (e *Executor) run(cmd *exec.Cmd, p *domain.ProcessBuilder) error {
	e.logger.Debug("Running " + p.String())

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			return domain.NewProcessError(p, &code, err)
		}
		return domain.NewProcessError(p, nil, err)
	}
	return nil
}

// resolveEnvironment overlays the process environment on the system one.
func resolveEnvironment(sysEnv []string, procEnv map[string]string) []string {
	envMap := make(map[string]string, len(sysEnv)+len(procEnv))
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if ok {
			envMap[k] = v
		}
	}

	for k, v := range procEnv {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}

// lookPath searches for an executable in the directories named by the PATH environment variable.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
