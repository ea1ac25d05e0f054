package observability

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger creates a structured logger writing to w and sets it as the slog
// default. Commands that print reports on stdout pass os.Stderr here; the
// long-running server uses the shared stdout logger instead.
// level: "debug", "warn", "error", or "info" (default).
// format: "text" for human-readable, anything else for JSON.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
