// Package logger provides the process-wide structured logger.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log is the global logger instance. Components attach fields with
// Log.With()... rather than formatting strings themselves.
var Log zerolog.Logger

func init() {
	Log = zerolog.New(os.Stdout).With().Timestamp().Logger()

	if os.Getenv("APP_ENV") != "production" {
		Log = Log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// Component returns a logger with a "component" field set, used by each
// long-running subsystem (scheduler, worker pool, lease manager, ...).
func Component(name string) zerolog.Logger {
	return Log.With().Str("component", name).Logger()
}
