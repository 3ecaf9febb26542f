// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package logging

import (
	"bytes"
	"log/slog"
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
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
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

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("user_id", "user_001").Msg("test message")

	out := buf.String()
	if !strings.Contains(out, `"user_id":"user_001"`) {
		t.Errorf("output missing structured field: %s", out)
	}
	if !strings.Contains(out, `"message":"test message"`) {
		t.Errorf("output missing message: %s", out)
	}
}

func TestNewTestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTestLogger(&buf)

	logger.Info().Int("count", 3).Msg("captured")

	if !strings.Contains(buf.String(), `"count":3`) {
		t.Errorf("test logger output = %s, want count field", buf.String())
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	zl := NewTestLogger(&buf)
	slogger := slog.New(NewSlogHandlerWithLogger(zl))

	slogger.Info("supervisor event", slog.String("service", "http-server"))

	out := buf.String()
	if !strings.Contains(out, "supervisor event") {
		t.Errorf("slog message not forwarded: %s", out)
	}
	if !strings.Contains(out, `"service":"http-server"`) {
		t.Errorf("slog attr not forwarded: %s", out)
	}
}

func TestSlogHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	zl := NewTestLogger(&buf)
	slogger := slog.New(NewSlogHandlerWithLogger(zl)).WithGroup("suture")

	slogger.Warn("service failed", slog.String("name", "batch"))

	if !strings.Contains(buf.String(), `"suture.name":"batch"`) {
		t.Errorf("group prefix not applied: %s", buf.String())
	}
}
