// Package logger implements a logging adapter using log/slog.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
)

// messager matches errors that report their own message without the chain,
// such as *zerr.Error.
type messager interface {
	Message() string
}

// metadataer matches errors carrying structured metadata, such as *zerr.Error.
type metadataer interface {
	Metadata() map[string]any
}

// Logger implements ports.Logger using log/slog.
type Logger struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	level   *slog.LevelVar
	output  io.Writer
	profile *termenv.Profile
}

// New creates a Logger writing to stderr.
func New() *Logger {
	l := &Logger{level: &slog.LevelVar{}, output: os.Stderr}
	l.rebuild()
	return l
}

var _ ports.Logger = (*Logger)(nil)

func (l *Logger) rebuild() {
	l.logger = slog.New(NewPrettyHandler(l.output, &slog.HandlerOptions{Level: l.level}, l.profile))
}

// SetOutput updates the logger's output destination.
// If w is nil, os.Stderr is used.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w == nil {
		w = os.Stderr
	}
	l.output = w
	l.rebuild()
}

// SetVerbosity maps verbose to debug records and quiet to warnings and errors only.
func (l *Logger) SetVerbosity(v domain.Verbosity) {
	switch v {
	case domain.VerbosityVerbose:
		l.level.Set(slog.LevelDebug)
	case domain.VerbosityQuiet:
		l.level.Set(slog.LevelWarn)
	default:
		l.level.Set(slog.LevelInfo)
	}
}

// SetColor selects the colour profile of the output.
func (l *Logger) SetColor(c domain.ColorChoice) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch c {
	case domain.ColorAlways:
		p := termenv.ANSI256
		l.profile = &p
	case domain.ColorNever:
		p := termenv.Ascii
		l.profile = &p
	default:
		l.profile = nil
	}
	l.rebuild()
}

// Debug logs a message shown only in verbose mode.
func (l *Logger) Debug(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Debug(msg)
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg)
}

// Status logs a status line such as "   Compiling foo v0.1.0".
func (l *Logger) Status(verb, msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg, statusKey, verb)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg)
}

// Error logs an error together with its cause chain.
func (l *Logger) Error(err error) {
	if err == nil {
		return
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Error(formatErrorEntries(collectErrorEntries(err)))
}

// ErrorEntry is one level of an error chain.
type ErrorEntry struct {
	Message  string
	Metadata map[string]any
}

// collectErrorEntries walks the chain of err. Metadata of an entry without a
// message of its own is attached to the next entry.
func collectErrorEntries(err error) []ErrorEntry {
	var entries []ErrorEntry
	var pending map[string]any

	for current := err; current != nil; {
		var meta map[string]any
		if m, ok := current.(metadataer); ok {
			meta = m.Metadata()
		}
		if len(pending) > 0 {
			if meta == nil {
				meta = make(map[string]any)
			}
			for k, v := range pending {
				meta[k] = v
			}
			pending = nil
		}

		m, ok := current.(messager)
		if !ok {
			entries = append(entries, ErrorEntry{Message: current.Error(), Metadata: nilIfEmpty(meta)})
			break
		}
		if m.Message() == "" {
			pending = meta
		} else {
			entries = append(entries, ErrorEntry{Message: m.Message(), Metadata: nilIfEmpty(meta)})
		}
		current = errors.Unwrap(current)
	}
	return entries
}

func nilIfEmpty(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return m
}

func formatErrorEntries(entries []ErrorEntry) string {
	var lines []string
	for i, entry := range entries {
		msgLines := strings.Split(entry.Message, "\n")
		indent := "      "
		if i == 0 {
			lines = append(lines, "Error: "+msgLines[0])
			indent = "       "
		} else {
			if i == 1 {
				lines = append(lines, "", "  Caused by:")
			}
			lines = append(lines, "    → "+msgLines[0])
		}
		for _, line := range msgLines[1:] {
			lines = append(lines, indent+line)
		}

		keys := make([]string, 0, len(entry.Metadata))
		for k := range entry.Metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("%s%s: %v", indent, k, entry.Metadata[k]))
		}
	}
	return strings.Join(lines, "\n")
}
