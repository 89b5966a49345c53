// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"disabled", zerolog.Disabled},
		{"INFO", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInitJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf, Timestamp: true})
	defer Init(DefaultConfig())

	Info().Str("component", "test").Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"component":"test"`) {
		t.Errorf("expected structured field in output, got: %s", out)
	}
	if !strings.Contains(out, `"message":"hello"`) {
		t.Errorf("expected message in output, got: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "error", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Debug().Msg("should not appear")
	Info().Msg("should not appear either")
	Error().Msg("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("low-level messages leaked through filter: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("error message missing from output: %s", out)
	}
}

func TestCycleIDContext(t *testing.T) {
	ctx := context.Background()
	if got := CycleIDFromContext(ctx); got != "" {
		t.Errorf("expected empty cycle ID, got %q", got)
	}

	ctx = ContextWithCycleID(ctx, "cycle-123")
	if got := CycleIDFromContext(ctx); got != "cycle-123" {
		t.Errorf("expected cycle-123, got %q", got)
	}
}

func TestGenerateCycleIDUnique(t *testing.T) {
	a := GenerateCycleID()
	b := GenerateCycleID()
	if a == b {
		t.Error("expected unique cycle IDs")
	}
	if a == "" {
		t.Error("expected non-empty cycle ID")
	}
}

func TestLoggerFromContextAnnotatesCycleID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	ctx := ContextWithCycleID(context.Background(), "abc")
	logger := LoggerFromContext(ctx)
	logger.Info().Msg("annotated")

	if !strings.Contains(buf.String(), `"cycle_id":"abc"`) {
		t.Errorf("expected cycle_id field, got: %s", buf.String())
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	zl := NewTestLogger(&buf)
	slogger := NewSlogHandlerWithLogger(zl)

	if !slogger.Enabled(context.Background(), 8) { // slog.LevelError
		t.Error("expected error level to be enabled")
	}
}
