package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level represents log severity levels.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

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
		return "UNKNOWN"
	}
}

// IsValidLevel reports whether s names a level ParseLevel understands.
func IsValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// ParseLevel maps a config string to a Level. Unknown values fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger is the interface for all logger implementations.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithFields(fields ...Field) Logger
}

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// SlogLogger adapts a *slog.Logger to the Logger interface.
type SlogLogger struct {
	base *slog.Logger
}

// New creates a logger writing to w with the given level and format.
func New(w io.Writer, level Level, format Format) *SlogLogger {
	opts := &slog.HandlerOptions{Level: level.slogLevel()}
	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &SlogLogger{base: slog.New(handler)}
}

func (l *SlogLogger) Debug(msg string, fields ...Field) { l.log(slog.LevelDebug, msg, fields) }
func (l *SlogLogger) Info(msg string, fields ...Field)  { l.log(slog.LevelInfo, msg, fields) }
func (l *SlogLogger) Warn(msg string, fields ...Field)  { l.log(slog.LevelWarn, msg, fields) }
func (l *SlogLogger) Error(msg string, fields ...Field) { l.log(slog.LevelError, msg, fields) }

func (l *SlogLogger) WithFields(fields ...Field) Logger {
	return &SlogLogger{base: l.base.With(toArgs(fields)...)}
}

func (l *SlogLogger) log(level slog.Level, msg string, fields []Field) {
	ctx := context.Background()
	if !l.base.Enabled(ctx, level) {
		return
	}
	l.base.Log(ctx, level, msg, toArgs(fields)...)
}

func toArgs(fields []Field) []any {
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok && err != nil {
			args = append(args, slog.String(f.Key, err.Error()))
			continue
		}
		args = append(args, slog.Any(f.Key, f.Value))
	}
	return args
}

// FileLogger logs to a file.
type FileLogger struct {
	*SlogLogger
	file *os.File
}

// NewFileLogger creates a logger that appends to a file.
func NewFileLogger(path string, level Level, format Format) (*FileLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &FileLogger{SlogLogger: New(file, level, format), file: file}, nil
}

// Close closes the log file.
func (l *FileLogger) Close() error {
	return l.file.Close()
}

// MultiLogger composes multiple loggers together.
type MultiLogger struct {
	loggers []Logger
	fields  []Field
}

// NewMultiLogger creates a logger that writes to multiple destinations.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Debug(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Debug(msg, m.merge(fields)...)
	}
}

func (m *MultiLogger) Info(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Info(msg, m.merge(fields)...)
	}
}

func (m *MultiLogger) Warn(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Warn(msg, m.merge(fields)...)
	}
}

func (m *MultiLogger) Error(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Error(msg, m.merge(fields)...)
	}
}

func (m *MultiLogger) WithFields(fields ...Field) Logger {
	newLoggers := make([]Logger, len(m.loggers))
	copy(newLoggers, m.loggers)
	return &MultiLogger{
		loggers: newLoggers,
		fields:  m.merge(fields),
	}
}

func (m *MultiLogger) merge(fields []Field) []Field {
	all := make([]Field, 0, len(m.fields)+len(fields))
	all = append(all, m.fields...)
	return append(all, fields...)
}

// NoopLogger discards everything.
type NoopLogger struct{}

// NewNoopLogger returns a logger that drops all output.
func NewNoopLogger() NoopLogger { return NoopLogger{} }

func (NoopLogger) Debug(string, ...Field)       {}
func (NoopLogger) Info(string, ...Field)        {}
func (NoopLogger) Warn(string, ...Field)        {}
func (NoopLogger) Error(string, ...Field)       {}
func (n NoopLogger) WithFields(...Field) Logger { return n }
