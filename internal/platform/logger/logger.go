package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output keeps log
// aggregation trivial; the level is fixed at Info unless SKDM_DEBUG is set.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("SKDM_DEBUG") == "true" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
