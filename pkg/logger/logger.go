// Package logger configures the engine's structured logging: one
// process-wide slog.Logger plus derived loggers scoped to a
// simulation run, a scenario, or an engine component, so every line a
// run emits can be traced back to the (run, scenario, step) that
// produced it.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process-wide logger: JSON on stdout at info level until
// Configure replaces it.
var Log = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// Rotation bounds a log file's growth.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Options selects the level, encoding, and destination of engine
// logs. Output is "stdout", "stderr", or a file path; file output is
// rotated per Rotation.
type Options struct {
	Level    string // debug, info, warn, error
	Format   string // json or text
	Output   string
	Rotation Rotation
}

// Configure rebuilds the process logger from opts, returning it so
// callers embedding the engine can hold their own reference. An
// unusable file destination is an error rather than a silent
// fallback: a run whose audit trail cannot be written should not
// start.
func Configure(opts Options) (*slog.Logger, error) {
	w, err := destination(opts)
	if err != nil {
		return nil, err
	}

	level := parseLevel(opts.Level)
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if opts.Format == "text" {
		handler = slog.NewTextHandler(w, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(w, handlerOpts)
	}

	Log = slog.New(handler)
	return Log, nil
}

// parseLevel reads a level name through slog's own text form,
// defaulting to info on anything unrecognised.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func destination(opts Options) (io.Writer, error) {
	switch opts.Output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
			return nil, fmt.Errorf("logger: create log directory: %w", err)
		}
		return &lumberjack.Logger{
			Filename:   opts.Output,
			MaxSize:    opts.Rotation.MaxSizeMB,
			MaxBackups: opts.Rotation.MaxBackups,
			MaxAge:     opts.Rotation.MaxAgeDays,
			Compress:   opts.Rotation.Compress,
		}, nil
	}
}

// ForRun tags lines with the simulation run identifier.
func ForRun(runID string) *slog.Logger {
	return Log.With("run_id", runID)
}

// ForComponent tags lines with the engine component emitting them
// ("runloop", "solver", "recorder", ...).
func ForComponent(component string) *slog.Logger {
	return Log.With("component", component)
}

// ForScenario derives a logger carrying a scenario's global index,
// usually from a run- or component-scoped parent.
func ForScenario(parent *slog.Logger, global int) *slog.Logger {
	return parent.With("scenario", global)
}

// ForStep derives a logger carrying the step ordinal being replayed.
func ForStep(parent *slog.Logger, ordinal int) *slog.Logger {
	return parent.With("step", ordinal)
}
