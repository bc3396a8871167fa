package app

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// Environment variables that carry the coordinator's log settings to its
// workers.
const (
	LogLevelEnv  = "MJLAUNCH_LOG_LEVEL"
	LogFormatEnv = "MJLAUNCH_LOG_FORMAT"
)

// newLogger creates and configures a new slog.Logger instance. It does not
// set the global logger, allowing for isolated logger instances.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
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

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler

	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}

	return slog.New(handler)
}

// DefaultLogFormat is text for an interactive terminal and json otherwise.
func DefaultLogFormat(f *os.File) string {
	if f != nil && term.IsTerminal(int(f.Fd())) {
		return "text"
	}
	return "json"
}
