// Package logging provides structured logging for the taxdesk client.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zerolog with console formatting and an optional rotated file.
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	file    *lumberjack.Logger
}

// NewLogger creates a logger writing human-readable lines to out.
// When logFile is non-empty, output is also written in JSON to a rotated file.
func NewLogger(out io.Writer, logFile string) (*Logger, error) {
	console := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
	}

	l := &Logger{console: console}
	var output io.Writer = console

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0700); err != nil {
			return nil, err
		}
		l.file = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		output = zerolog.MultiLevelWriter(console, l.file)
	}

	l.zlog = zerolog.New(output).With().Timestamp().Logger()
	return l, nil
}

// NewDefaultCLILogger creates a console logger on stderr, leaving stdout for command output.
func NewDefaultCLILogger() *Logger {
	l, _ := NewLogger(os.Stderr, "")
	return l
}

// NewNopLogger returns a logger that discards everything. Used by tests.
func NewNopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop(), console: io.Discard}
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// With creates a child logger context with additional fields.
func (l *Logger) With() zerolog.Context {
	return l.zlog.With()
}

// Component returns a child Logger tagged with a component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{
		zlog:    l.zlog.With().Str("component", name).Logger(),
		console: l.console,
		file:    l.file,
	}
}

// Output returns the current console writer.
func (l *Logger) Output() io.Writer {
	return l.console
}

// Close flushes and closes the rotated log file, if one is open.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// ParseLevel maps a config level name to a zerolog level. Unknown names map to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}
