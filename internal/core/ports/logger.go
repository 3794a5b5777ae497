package ports

import "go.trai.ch/forge/internal/core/domain"

// Logger defines the interface for user-facing output.
//
//go:generate mockgen -source=logger.go -destination=mocks/mock_logger.go -package=mocks
type Logger interface {
	// Debug prints a line only in verbose mode.
	Debug(msg string)
	// Info prints a plain line unless quiet.
	Info(msg string)
	// Status prints a right-aligned verb followed by a message, e.g. "Compiling foo v0.1.0".
	Status(verb, msg string)
	// Warn prints a warning.
	Warn(msg string)
	// Error prints an error with its cause chain.
	Error(err error)

	// SetVerbosity switches between normal, verbose and quiet output.
	SetVerbosity(v domain.Verbosity)
	// SetColor selects when output is coloured.
	SetColor(c domain.ColorChoice)
}
