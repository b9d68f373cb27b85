// Package obs carries the engine's observability stack: a structured
// logger factory, plus Prometheus metrics for every entry point.
// Logging goes through a single
// zerolog.Logger instance threaded through call sites, rather than a
// package-level global.
package obs

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a console-writer zerolog.Logger at info level,
// timestamped, suited to interactive CLI usage. Callers inject their
// own instance via engine.WithLogger rather than reaching for a
// package-level global.
func NewLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.InfoLevel).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything, used as the default
// when a caller doesn't supply one via engine.WithLogger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
