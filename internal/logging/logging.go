package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// SandboxKey is the attribute naming the sandbox a record belongs to.
const SandboxKey = "sandbox"

var (
	// Logger receives every diagnostic record. It never writes to stdout,
	// which carries the output of the test command.
	Logger *slog.Logger

	level = new(slog.LevelVar)
)

func init() {
	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Setup selects verbosity and record format. A nil writer means stderr.
func Setup(verbose bool, jsonOutput bool, w io.Writer) {
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	if jsonOutput {
		Logger = slog.New(slog.NewJSONHandler(w, opts))
	} else {
		Logger = slog.New(slog.NewTextHandler(w, opts))
	}
}

// Verbose reports whether debug records are emitted.
func Verbose() bool {
	return Logger.Enabled(context.Background(), slog.LevelDebug)
}

// Sandbox returns a logger whose records carry the sandbox identity.
func Sandbox(id string) *slog.Logger {
	return Logger.With(SandboxKey, id)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}
