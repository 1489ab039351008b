package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"dotify/internal/config"
)

// New builds the application logger. The returned closer releases the log
// file, if one is configured, and is nil otherwise.
func New(cfg config.LoggingConfig) (*slog.Logger, io.Closer) {
	writer, closer := buildWriter(os.Stdout, cfg)
	return slog.New(buildHandler(writer, ParseLevel(cfg.Level), cfg.Format)), closer
}

// ParseLevel converts a string to slog.Level, defaulting to Info
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildWriter tees out into a rotating file when one is configured
func buildWriter(out io.Writer, cfg config.LoggingConfig) (io.Writer, io.Closer) {
	if cfg.File == "" {
		return out, nil
	}

	maxSize := cfg.FileMaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	maxBackups := cfg.FileMaxBackups
	if maxBackups <= 0 {
		maxBackups = 3
	}
	maxAge := cfg.FileMaxAgeDays
	if maxAge <= 0 {
		maxAge = 30
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
	}
	return io.MultiWriter(out, lj), lj
}

func buildHandler(w io.Writer, level slog.Leveler, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
