// Package logging provides the structured logging API used across the server.
//
// The protocol stream owns stdout, so every diagnostic goes through a Logger
// that usually writes JSON lines to an append-only file:
//
//	f, err := logging.OpenFile("mcp-server.log")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	logger := logging.NewSlog(f, logging.LevelInfo)
//	logger.Info("server started", logging.F("resources", 7))
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the interface for structured logging.
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Err is shorthand for F("error", err.Error()). A nil error yields an empty value.
func Err(err error) Field {
	if err == nil {
		return F("error", "")
	}
	return F("error", err.Error())
}

// Nop is a logger that discards all log entries.
type Nop struct{}

// Info discards the message.
func (Nop) Info(msg string, fields ...Field) {}

// Error discards the message.
func (Nop) Error(msg string, fields ...Field) {}

// Debug discards the message.
func (Nop) Debug(msg string, fields ...Field) {}

// Warn discards the message.
func (Nop) Warn(msg string, fields ...Field) {}

// Level is a minimum severity for the slog backend.
type Level = slog.Level

// Severity levels accepted by NewSlog.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// ParseLevel converts a level name (debug, info, warn, error) into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Slog adapts a *slog.Logger to the Logger interface.
type Slog struct {
	l *slog.Logger
}

// NewSlog returns a Logger writing JSON records to w at or above level.
func NewSlog(w io.Writer, level Level) *Slog {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &Slog{l: slog.New(h)}
}

// FromSlog wraps an existing slog logger.
func FromSlog(l *slog.Logger) *Slog {
	return &Slog{l: l}
}

// With returns a logger that always includes the given fields.
func (s *Slog) With(fields ...Field) *Slog {
	return &Slog{l: s.l.With(attrs(fields)...)}
}

// Info logs at slog.LevelInfo.
func (s *Slog) Info(msg string, fields ...Field) { s.log(slog.LevelInfo, msg, fields) }

// Error logs at slog.LevelError.
func (s *Slog) Error(msg string, fields ...Field) { s.log(slog.LevelError, msg, fields) }

// Debug logs at slog.LevelDebug.
func (s *Slog) Debug(msg string, fields ...Field) { s.log(slog.LevelDebug, msg, fields) }

// Warn logs at slog.LevelWarn.
func (s *Slog) Warn(msg string, fields ...Field) { s.log(slog.LevelWarn, msg, fields) }

func (s *Slog) log(level slog.Level, msg string, fields []Field) {
	s.l.Log(context.Background(), level, msg, attrs(fields)...)
}

func attrs(fields []Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

// OpenFile opens path for appending, creating it if needed.
func OpenFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}
