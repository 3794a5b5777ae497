package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/muesli/termenv"
)

// statusKey is the attribute that turns an info record into a status line.
const statusKey = "status"

// statusWidth is the column the status verb is right-aligned to.
const statusWidth = 12

// PrettyHandler is a slog.Handler producing the compiler-style output of
// forge: right-aligned status verbs, prefixed warnings and plain messages.
type PrettyHandler struct {
	out   *termenv.Output
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewPrettyHandler creates a handler writing to w. A nil profile detects
// colour support from the writer and the environment.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions, profile *termenv.Profile) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}

	var out *termenv.Output
	if profile != nil {
		out = termenv.NewOutput(w, termenv.WithProfile(*profile))
	} else {
		out = termenv.NewOutput(w)
	}

	return &PrettyHandler{out: out, level: level}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and outputs the log record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var verb string
	attrParts := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, attr := range h.attrs {
		attrParts = append(attrParts, formatAttr(h.group, attr))
	}
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key == statusKey {
			verb = attr.Value.String()
			return true
		}
		attrParts = append(attrParts, formatAttr(h.group, attr))
		return true
	})

	msg := r.Message
	if len(attrParts) > 0 {
		msg += " " + strings.Join(attrParts, " ")
	}

	var line string
	switch {
	case verb != "":
		padded := strings.Repeat(" ", max(0, statusWidth-len(verb))) + verb
		line = h.out.String(padded).Foreground(h.out.Color("2")).Bold().String() + " " + msg
	case r.Level >= slog.LevelError:
		line = h.out.String(msg).Foreground(h.out.Color("1")).String()
	case r.Level >= slog.LevelWarn:
		line = h.out.String("warning").Foreground(h.out.Color("3")).Bold().String() + ": " + msg
	case r.Level < slog.LevelInfo:
		line = h.out.String(msg).Faint().String()
	default:
		line = msg
	}

	_, err := h.out.WriteString(line + "\n")
	return err
}

// WithAttrs returns a new Handler with the given attributes appended.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	return &PrettyHandler{
		out:   h.out,
		level: h.level,
		attrs: newAttrs,
		group: h.group,
	}
}

// WithGroup returns a new Handler with the given group name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	return &PrettyHandler{
		out:   h.out,
		level: h.level,
		attrs: h.attrs,
		group: name,
	}
}

func formatAttr(group string, attr slog.Attr) string {
	key := attr.Key
	if group != "" {
		key = group + "." + key
	}
	return key + "=" + attr.Value.String()
}
