package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type Logger struct {
	service  string
	hostname string
	handler  *slog.Logger
}

// New returns a JSON logger writing to stdout.
func New(service string) *Logger {
	return NewWithWriter(service, os.Stdout, slog.LevelDebug)
}

func NewWithWriter(service string, w io.Writer, level slog.Level) *Logger {
	hostname, _ := os.Hostname()
	return &Logger{
		service:  service,
		hostname: hostname,
		handler: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})),
	}
}

// Discard is used by tests and by components built without a logger.
func Discard() *Logger {
	return NewWithWriter("discard", io.Discard, slog.LevelError+1)
}

func (l *Logger) Debug(action, message string, attrs ...slog.Attr) {
	l.log(slog.LevelDebug, action, message, attrs)
}

func (l *Logger) Info(action, message string, attrs ...slog.Attr) {
	l.log(slog.LevelInfo, action, message, attrs)
}

func (l *Logger) Warn(action, message string, attrs ...slog.Attr) {
	l.log(slog.LevelWarn, action, message, attrs)
}

func (l *Logger) Error(action, message string, err error, attrs ...slog.Attr) {
	if err != nil {
		attrs = append(attrs, slog.Group("error", slog.String("msg", err.Error())))
	}
	l.log(slog.LevelError, action, message, attrs)
}

func (l *Logger) log(level slog.Level, action, message string, attrs []slog.Attr) {
	if l == nil {
		return
	}
	base := []slog.Attr{
		slog.String("service", l.service),
		slog.String("hostname", l.hostname),
		slog.String("action", action),
	}
	l.handler.LogAttrs(context.Background(), level, message, append(base, attrs...)...)
}
