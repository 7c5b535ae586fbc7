// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"signupd/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo}, // typo falls back to info
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.name))
		})
	}
}

func TestSetupLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	setupLogger(config.LogConfig{Level: "debug", Format: "json"})

	ctx := context.Background()
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelDebug))

	setupLogger(config.LogConfig{Level: "error", Format: "text"})
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelInfo))
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelError))
}
