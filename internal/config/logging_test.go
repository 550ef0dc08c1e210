package config_test

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tipjar/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		expected config.LogLevel
	}{
		{"off lowercase", "off", config.LogLevelOff},
		{"off uppercase", "OFF", config.LogLevelOff},
		{"none", "none", config.LogLevelOff},
		{"error", "error", config.LogLevelError},
		{"warn", "warn", config.LogLevelWarn},
		{"warning", "Warning", config.LogLevelWarn},
		{"info", "info", config.LogLevelInfo},
		{"debug uppercase", "DEBUG", config.LogLevelDebug},
		{"with whitespace", "  debug  ", config.LogLevelDebug},
		{"invalid returns error", "invalid", config.LogLevelError},
		{"empty returns error", "", config.LogLevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, config.ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	t.Parallel()
	for _, l := range []config.LogLevel{config.LogLevelOff, config.LogLevelError, config.LogLevelWarn, config.LogLevelInfo, config.LogLevelDebug} {
		assert.Equal(t, l, config.ParseLogLevel(l.String()))
	}
	assert.Equal(t, "error", config.LogLevel(99).String())
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestWriterLogger_Levels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := config.NewWriterLogger(config.LogLevelInfo, &buf)
	l.Debug("hidden %d", 1)
	l.Info("tip %s sent", "abc")
	l.Warn("slow rpc")
	l.Error("failed: %v", "boom")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "tip abc sent", lines[0]["message"])
	assert.Equal(t, "warn", lines[1]["level"])
	assert.Equal(t, "error", lines[2]["level"])
	assert.Equal(t, "failed: boom", lines[2]["message"])
	assert.Contains(t, lines[0], "time")
}

func TestWriterLogger_SetLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := config.NewWriterLogger(config.LogLevelError, &buf)
	l.Debug("hidden")
	assert.Empty(t, buf.String())

	l.SetLevel(config.LogLevelDebug)
	assert.Equal(t, config.LogLevelDebug, l.Level())
	l.Debug("shown")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	l.SetLevel(config.LogLevelOff)
	l.Error("hidden")
	assert.Empty(t, buf.String())
}

func TestLogger_Writer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := config.NewWriterLogger(config.LogLevelError, &buf)
	std := log.New(l.Writer(config.LogLevelError), "", 0)
	std.Printf("http: TLS handshake error\n")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "http: TLS handshake error", lines[0]["message"])
}

func TestNewLogger_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "tipjar.log")
	l, err := config.NewLoggerFromConfig(config.LoggingConfig{Level: "debug", File: path, MaxSizeMB: 1, MaxAgeDays: 1})
	require.NoError(t, err)
	assert.Equal(t, path, l.FilePath())

	l.Debug("written to %s", "file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestNewLogger_OffOrNoFile(t *testing.T) {
	t.Parallel()

	l, err := config.NewLogger(config.LogLevelOff, filepath.Join(t.TempDir(), "never.log"))
	require.NoError(t, err)
	assert.Empty(t, l.FilePath())
	l.Error("dropped")
	require.NoError(t, l.Close())

	l, err = config.NewLogger(config.LogLevelDebug, "")
	require.NoError(t, err)
	assert.Equal(t, config.LogLevelDebug, l.Level())
	l.Debug("dropped")
}

func TestNullLogger(t *testing.T) {
	t.Parallel()

	l := config.NullLogger()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	require.NoError(t, l.Close())
	assert.Equal(t, config.LogLevelOff, l.Level())
}
