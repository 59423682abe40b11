// Package logging configures structured slog output for the engine:
// JSON records to a size-rotated file under ~/.lumen/logs, optionally
// mirrored to stderr.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lumenlauncher/lumen/internal/config"
)

// Setup initializes file-based logging from the logging section of the
// engine configuration and returns the logger plus a cleanup function
// that flushes and closes the log file.
func Setup(cfg config.LoggingConfig, toStderr bool) (*slog.Logger, func(), error) {
	path := cfg.FilePath
	if path == "" {
		path = DefaultLogPath()
	}

	writer, err := NewRotatingWriter(path, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var output io.Writer = writer
	if toStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	logger := slog.New(handler)

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}
	return logger, cleanup, nil
}

// SetupDefault sets up logging from cfg and installs the result as the
// process-wide default logger. Returns the cleanup function.
func SetupDefault(cfg config.LoggingConfig, toStderr bool) (func(), error) {
	logger, cleanup, err := Setup(cfg, toStderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
