package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger builds the process-wide logger. Every line carries the
// service name so api and worker output can be told apart when both land in
// the same sink.
func NewJSONLogger(service, level string) *slog.Logger {
	return NewJSONLoggerTo(os.Stdout, service, level)
}

// NewJSONLoggerTo takes the output writer so tests can capture log lines.
func NewJSONLoggerTo(w io.Writer, service, level string) *slog.Logger {
	var lv slog.LevelVar
	if err := lv.UnmarshalText([]byte(normalizeLevel(level))); err != nil {
		lv.Set(slog.LevelInfo)
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: &lv})
	return slog.New(handler).With(slog.String("service", service))
}

// normalizeLevel maps config spellings onto the names slog parses. Anything
// unparseable falls back to info above.
func normalizeLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		return "warn"
	}
	return level
}
