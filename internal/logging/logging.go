// Package logging builds the zerolog.Logger handed to the session,
// transport, and scheduler: structured JSON by default, a console
// writer for local development, timestamp plus caller on every line.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	Level  string // debug | info | warn | error
	Format string // json | console
}

// New builds a root logger per Options, tagged with a "component" field
// by callers via .With().Str("component", ...).
func New(opts Options) zerolog.Logger {
	level := zerolog.InfoLevel
	switch opts.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	if opts.Format == "console" {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).With().Timestamp().Caller().Str("service", "zpico").Logger()
}
