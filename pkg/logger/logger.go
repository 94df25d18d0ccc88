package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Logger is the logging interface used by the library.
type Logger interface {
	Info(msg string, obj any)
	Warn(msg string, obj any)
	Debug(msg string, obj any)
	Error(msg string, obj any)
}

// NopLogger discards all log messages.
type NopLogger struct{}

func (NopLogger) Info(string, any)  {}
func (NopLogger) Warn(string, any)  {}
func (NopLogger) Debug(string, any) {}
func (NopLogger) Error(string, any) {}

type slogLogger struct {
	l *slog.Logger
}

// NewWriterLogger builds a tint-formatted logger that writes to w. Debug
// records are emitted only when verbose is set.
func NewWriterLogger(w io.Writer, verbose bool) Logger {
	if w == nil {
		w = io.Discard
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isTerminal(w),
	})
	return slogLogger{l: slog.New(handler)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (l slogLogger) log(level slog.Level, msg string, obj any) {
	if obj == nil {
		l.l.Log(context.Background(), level, msg)
		return
	}
	if fields, ok := obj.(map[string]any); ok {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		args := make([]any, 0, len(keys))
		for _, k := range keys {
			args = append(args, slog.Any(k, fields[k]))
		}
		l.l.Log(context.Background(), level, msg, args...)
		return
	}
	l.l.Log(context.Background(), level, msg, slog.Any("obj", obj))
}

func (l slogLogger) Info(msg string, obj any)  { l.log(slog.LevelInfo, msg, obj) }
func (l slogLogger) Warn(msg string, obj any)  { l.log(slog.LevelWarn, msg, obj) }
func (l slogLogger) Debug(msg string, obj any) { l.log(slog.LevelDebug, msg, obj) }
func (l slogLogger) Error(msg string, obj any) { l.log(slog.LevelError, msg, obj) }

// Debug writes a debug log when enabled and logger is non-nil.
func Debug(enabled bool, logger Logger, msg string, obj any) {
	if !enabled || logger == nil {
		return
	}
	logger.Debug(msg, obj)
}

// Debugf is a compatibility helper for format-style debug logging.
func Debugf(enabled bool, logger Logger, format string, args ...any) {
	Debug(enabled, logger, fmt.Sprintf(format, args...), nil)
}

// Info writes an info log when logger is non-nil.
func Info(logger Logger, msg string, obj any) {
	if logger == nil {
		return
	}
	logger.Info(msg, obj)
}

// Warn writes a warning log when logger is non-nil.
func Warn(logger Logger, msg string, obj any) {
	if logger == nil {
		return
	}
	logger.Warn(msg, obj)
}

// Error writes an error log when logger is non-nil.
func Error(logger Logger, msg string, obj any) {
	if logger == nil {
		return
	}
	logger.Error(msg, obj)
}
