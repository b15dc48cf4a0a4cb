package config

import (
	"log/slog"
	"strings"
)

// Level maps log_level to a slog level, defaulting to warn.
func (d DebugConfig) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(d.LogLevel))); err != nil {
		return slog.LevelWarn
	}
	return level
}
