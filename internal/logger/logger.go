// Package logger builds the structured JSON logger shared by every component
// of the reconciliation service, from the settlement parser down to the
// repositories.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/fechamento-diario/internal/config"
)

// NewLogger creates a slog.Logger at the configured level. Source locations
// are added only at debug level; ingest runs log one line per skipped row and
// the extra fields are noise above that volume.
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source code location to log output
		AddSource: level == slog.LevelDebug,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(handler)

	logger.Info("logger initialized", "level", level)

	return logger
}
