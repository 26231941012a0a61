package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
)

// Logger provides leveled, printf-style logging throughout the application.
// Entries go to a colored console handler and, when configured, to Fluent Bit.
type Logger struct {
	console *slog.Logger
	fluent  *fluent.Fluent
	level   slog.Level
	fields  map[string]any
}

// LoggerOptions configures NewLoggerWithOptions. Zero values mean stdout,
// info level and colored output.
type LoggerOptions struct {
	Writer  io.Writer
	Level   slog.Level
	NoColor bool
	Fluent  *fluent.Fluent
}

// NewLogger creates a Logger writing colored output to stdout at info level.
func NewLogger() *Logger {
	return NewLoggerWithOptions(LoggerOptions{})
}

func NewLoggerWithOptions(opts LoggerOptions) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	var handler slog.Handler
	if opts.NoColor {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: opts.Level})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      opts.Level,
			TimeFormat: "2006-01-02 15:04:05",
		})
	}

	return &Logger{
		console: slog.New(handler),
		fluent:  opts.Fluent,
		level:   opts.Level,
		fields:  map[string]any{},
	}
}

// NewDiscardLogger returns a Logger that drops everything. Used in tests.
func NewDiscardLogger() *Logger {
	return NewLoggerWithOptions(LoggerOptions{Writer: io.Discard, NoColor: true})
}

// NewFluentClient connects to a Fluent Bit forward input.
func NewFluentClient(host string, port int, tagPrefix string) (*fluent.Fluent, error) {
	client, err := fluent.New(fluent.Config{
		FluentHost:   host,
		FluentPort:   port,
		TagPrefix:    tagPrefix,
		Async:        true,
		WriteTimeout: 3 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("fluent: connect %s:%d: %w", host, port, err)
	}
	return client, nil
}

// ParseLevel maps a LOG_LEVEL value to a slog level; unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger that attaches the given key/value pairs to
// every entry.
func (l *Logger) With(args ...any) *Logger {
	fields := maps.Clone(l.fields)
	for i := 0; i+1 < len(args); i += 2 {
		fields[fmt.Sprint(args[i])] = args[i+1]
	}
	return &Logger{
		console: l.console.With(args...),
		fluent:  l.fluent,
		level:   l.level,
		fields:  fields,
	}
}

func (l *Logger) Info(format string, args ...any) {
	l.log(slog.LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(slog.LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(slog.LevelError, format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.log(slog.LevelDebug, format, args...)
}

// Close flushes and closes the Fluent Bit connection, if any.
func (l *Logger) Close() error {
	if l.fluent == nil {
		return nil
	}
	return l.fluent.Close()
}

func (l *Logger) log(level slog.Level, format string, args ...any) {
	if level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.console.Log(context.Background(), level, msg)
	l.post(level, msg)
}

func (l *Logger) post(level slog.Level, msg string) {
	if l.fluent == nil {
		return
	}
	data := make(map[string]any, len(l.fields)+3)
	maps.Copy(data, l.fields)
	data["level"] = strings.ToLower(level.String())
	data["message"] = msg
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)

	// Delivery failures must never take the caller down.
	_ = l.fluent.Post(strings.ToLower(level.String()), data)
}
