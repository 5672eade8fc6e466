package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the service-wide slog.Logger.
// Accepted levels: debug, info, warn, error (defaults to info).
func New(level string) *slog.Logger {
	var logLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	// JSON output so log aggregation can index the key-value fields.
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
