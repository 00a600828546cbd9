// Package logger builds the application's slog.Logger from configuration.
//
// Usage:
//
//	log := logger.New(cfg.Log)
//	log.Info("server starting", "addr", cfg.Server.Addr())
//	log.Error("store unreachable", "error", err)
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sakif/resource-showcase/internal/config"
)

// New creates a logger that writes to stdout.
func New(cfg config.LogConfig) *slog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter creates a logger that writes to w. Tests pass a buffer.
func NewWithWriter(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel converts a level name to slog.Level, defaulting to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// WithComponent tags every entry with the component that produced it.
func WithComponent(log *slog.Logger, component string) *slog.Logger {
	return log.With("component", component)
}
