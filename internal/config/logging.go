package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger writes text to console and, when cfg.File is set, JSON to that
// file. A nil console means file only, which the terminal monitor needs since
// stderr shares the screen. The returned cleanup closes the file.
func SetupLogger(cfg LogConfig, console io.Writer) (*slog.Logger, func() error) {
	level := ParseLevel(cfg.Level)
	noop := func() error { return nil }

	if cfg.File == "" {
		if console == nil {
			return slog.New(slog.DiscardHandler), noop
		}
		return slog.New(slog.NewTextHandler(console, &slog.HandlerOptions{Level: level})), noop
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		if console == nil {
			return slog.New(slog.DiscardHandler), noop
		}
		logger := slog.New(slog.NewTextHandler(console, &slog.HandlerOptions{Level: level}))
		logger.Error("failed to open log file, using console only", "error", err, "file", cfg.File)
		return logger, noop
	}

	cleanup := func() error {
		if err := file.Close(); err != nil {
			return fmt.Errorf("close log file: %w", err)
		}
		return nil
	}
	if console == nil {
		return slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})), cleanup
	}
	return SetupLoggerWithWriters(console, file, level), cleanup
}

// SetupLoggerWithWriters fans out to a text handler and a JSON handler.
func SetupLoggerWithWriters(console, file io.Writer, level slog.Level) *slog.Logger {
	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{Level: level})
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(consoleHandler, fileHandler))
}
