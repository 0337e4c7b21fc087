package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rs/zerolog"

	"github.com/tailored-agentic-units/streamchat/observability"
)

const (
	formatText    = "text"
	formatJSON    = "json"
	formatConsole = "console"
)

// newObserver builds the CLI's event sink. Logs go to w at warn level, or
// debug when verbose.
func newObserver(format string, verbose bool, w io.Writer) (observability.Observer, error) {
	level := observability.LevelWarning
	if verbose {
		level = observability.LevelVerbose
	}

	switch format {
	case formatText, "":
		logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level.SlogLevel()}))
		return observability.NewSlogObserver(logger), nil
	case formatJSON:
		logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level.SlogLevel()}))
		return observability.NewSlogObserver(logger), nil
	case formatConsole:
		logger := zerolog.New(zerolog.ConsoleWriter{Out: w}).
			Level(level.ZerologLevel()).
			With().
			Timestamp().
			Logger()
		return observability.NewZerologObserver(logger), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want %s, %s, or %s)", format, formatText, formatJSON, formatConsole)
	}
}

// openEventLog records every event, verbose included, as JSON lines appended
// to path. An empty path records nothing.
func openEventLog(path string) (observability.Observer, func() error, error) {
	if path == "" {
		return observability.NoOpObserver{}, func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open event log: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: observability.LevelVerbose.SlogLevel(),
	}))
	return observability.NewSlogObserver(logger), f.Close, nil
}
