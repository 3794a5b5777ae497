package domain

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// ProcessBuilder describes one external process invocation.
type ProcessBuilder struct {
	Program string
	Args    []string
	Env     map[string]string
	Dir     string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewProcess returns a builder for program with args.
func NewProcess(program string, args ...string) *ProcessBuilder {
	return &ProcessBuilder{Program: program, Args: args, Env: make(map[string]string)}
}

// Arg appends arguments.
func (p *ProcessBuilder) Arg(args ...string) *ProcessBuilder {
	p.Args = append(p.Args, args...)
	return p
}

// SetEnv sets one environment variable for the process.
func (p *ProcessBuilder) SetEnv(key, value string) *ProcessBuilder {
	if p.Env == nil {
		p.Env = make(map[string]string)
	}
	p.Env[key] = value
	return p
}

// String renders the command line for diagnostics.
func (p *ProcessBuilder) String() string {
	parts := make([]string, 0, len(p.Args)+1)
	parts = append(parts, p.Program)
	parts = append(parts, p.Args...)
	return "`" + strings.Join(parts, " ") + "`"
}

// ExecEngine runs external processes for the compile pipeline.
type ExecEngine interface {
	// Exec runs the process to completion. Failures are *ProcessError.
	Exec(ctx context.Context, p *ProcessBuilder) error
	// Output runs the process and returns its stdout.
	Output(ctx context.Context, p *ProcessBuilder) ([]byte, error)
}

// ProcessError is returned when a process could not be spawned or exited
// unsuccessfully. Exit is nil when it never spawned.
type ProcessError struct {
	Desc  string
	Exit  *int
	Cause error
}

// NewProcessError builds an error for p. A nil exit code means the process
// never started.
func NewProcessError(p *ProcessBuilder, exit *int, cause error) *ProcessError {
	var desc string
	if exit == nil {
		desc = fmt.Sprintf("could not execute process %s", p)
	} else {
		desc = fmt.Sprintf("process didn't exit successfully: %s (exit code: %d)", p, *exit)
	}
	return &ProcessError{Desc: desc, Exit: exit, Cause: cause}
}

// Error implements error.
func (e *ProcessError) Error() string {
	if e.Cause != nil && e.Exit == nil {
		return e.Desc + ": " + e.Cause.Error()
	}
	return e.Desc
}

// Unwrap returns the underlying cause.
func (e *ProcessError) Unwrap() error { return e.Cause }

// Spawned reports whether the process started at all.
func (e *ProcessError) Spawned() bool { return e.Exit != nil }
