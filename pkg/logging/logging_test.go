package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestNew_MasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := Subsystem(New(&buf, slog.LevelDebug, FormatJSON), "auth")

	logger.Debug("sending request",
		slog.String("authorization", "Bearer abcdefghijklmnop"),
		slog.String("client_secret", "topsecretvalue"),
		slog.String("path", "/v2/ems-systems"),
		slog.Group("header", slog.String("note", "Bearer qrstuvwxyz0123")),
	)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "auth", rec[SubsystemKey])
	assert.Equal(t, "Bearer***", rec["authorization"])
	assert.Equal(t, "topsec***", rec["client_secret"])
	assert.Equal(t, "/v2/ems-systems", rec["path"])
	assert.NotContains(t, buf.String(), "qrstuvwxyz0123")
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn, FormatText)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard().Error("nothing")
	})
}
