package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

var log *slog.Logger

// Init sets up the package-level JSON logger. Call once at startup.
func Init() {
	log = slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// NewJSONHandler lets tests point the package logger at a buffer.
func NewJSONHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	return slog.NewJSONHandler(w, opts)
}

func New(h slog.Handler) *slog.Logger {
	return slog.New(h)
}

func l() *slog.Logger {
	if log == nil {
		Init()
	}
	return log
}

func Info(msg string, args ...any) {
	l().Info(msg, args...)
}

func Infof(format string, v ...any) {
	l().Info(fmt.Sprintf(format, v...))
}

func Warn(msg string, args ...any) {
	l().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	l().Error(msg, args...)
}

func Errorf(format string, v ...any) {
	l().Error(fmt.Sprintf(format, v...))
}

func Debug(msg string, args ...any) {
	l().Debug(msg, args...)
}

func Debugf(format string, v ...any) {
	l().Debug(fmt.Sprintf(format, v...))
}

func Fatal(msg string, args ...any) {
	l().Error(msg, args...)
	os.Exit(1)
}

func Fatalf(format string, v ...any) {
	l().Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}
