package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger owns the process's zerolog logger.
type Logger struct {
	zlog zerolog.Logger
}

// NewLogger creates a logger writing to out, or stderr when out is nil.
// Console format writes human-readable lines, json one object per line.
func NewLogger(cfg LoggingConfig, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}

	writer := out
	if cfg.Format == "console" {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return &Logger{
		zlog: zerolog.New(writer).With().Timestamp().Logger().Level(ParseLevel(cfg.Level)),
	}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Zerolog returns the underlying logger.
func (l *Logger) Zerolog() zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return l.zlog
}

// Component returns a child logger tagged with component.
func (l *Logger) Component(component string) zerolog.Logger {
	return l.Zerolog().With().Str("component", component).Logger()
}

// ForSite returns a child logger carrying the site and command of one
// evaluation.
func (l *Logger) ForSite(siteID, domain, command string) zerolog.Logger {
	return l.Zerolog().With().
		Str("site_id", siteID).
		Str("domain", domain).
		Str("command", command).
		Logger()
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
