// Package logging builds the structured logger injected into the engine and
// its components, replacing the global static logger pattern with explicit
// dependency injection.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Format selects the slog handler used for output.
type Format string

// Supported formats.
const (
	Text Format = "text"
	JSON Format = "json"
)

// Options configures a logger built by New.
type Options struct {
	Format  Format
	Verbose bool
	Output  io.Writer // defaults to os.Stderr
}

// New builds a *slog.Logger for the given options. Tests supply a capturing
// io.Writer via Options.Output rather than relying on a global logger.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.Format == JSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	return slog.New(handler)
}

// Discard returns a logger that drops everything, for components under test
// that do not exercise logging behavior.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
