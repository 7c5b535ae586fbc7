// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"

	"signupd/internal/config"
)

// setupLogger installs the global slog logger described by the log config.
func setupLogger(cfg config.LogConfig) {
	level := parseLevel(cfg.Level)

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: level})
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel maps a configured level name onto a slog.Level. Unknown names
// fall back to info rather than failing startup over a typo.
func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		if name != "" {
			slog.Warn("unknown log level, using info", "level", name)
		}
		return slog.LevelInfo
	}
	return level
}
