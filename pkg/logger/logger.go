// Package logger provides the levelled logger used by the compiler and CLI.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level represents the logging level.
type Level int

// Log levels.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelNone
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return ""
	}
}

// ParseLevel maps a case-insensitive level name to a Level.
// Unknown names yield LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "none", "off", "disabled":
		return LevelNone
	default:
		return LevelInfo
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.Disabled
	}
}

const component = "codebook"

var defaultLogger = New(os.Stderr, LevelInfo)

// Default returns the default logger.
func Default() zerolog.Logger {
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(l zerolog.Logger) {
	defaultLogger = l
}

// New creates a JSON logger writing to output.
func New(output io.Writer, level Level) zerolog.Logger {
	return zerolog.New(output).
		Level(level.zerolog()).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

// NewConsole creates a human-readable logger for terminals.
func NewConsole(output io.Writer, level Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: output, TimeFormat: time.TimeOnly}
	return New(cw, level)
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// Disable disables all logging on the default logger.
func Disable() {
	defaultLogger = defaultLogger.Level(zerolog.Disabled)
}
