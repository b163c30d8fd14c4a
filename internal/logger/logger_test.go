package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T, level string, detailed bool) *bytes.Buffer {
	t.Helper()
	prev := globalLogger
	t.Cleanup(func() {
		globalLogger = prev
		detailedLogging = false
	})

	var buf bytes.Buffer
	require.NoError(t, InitWithConfig(LogConfig{Level: level, Format: "json", DetailedLogging: detailed, Output: &buf}))
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &m))
		out = append(out, m)
	}
	return out
}

func TestLevelFiltering(t *testing.T) {
	buf := captureLogs(t, "WARN", true)
	ctx := context.Background()

	Debug(ctx, "debug")
	Info(ctx, "info")
	Warn(ctx, "warn", "section", "network")
	ErrorWithErr(ctx, "failed", errors.New("boom"))

	got := lines(t, buf)
	require.Len(t, got, 2)
	assert.Equal(t, "warn", got[0]["msg"])
	assert.Equal(t, "network", got[0]["section"])
	assert.Equal(t, "boom", got[1]["error"])
}

func TestScreeningAndAlert(t *testing.T) {
	buf := captureLogs(t, "INFO", false)
	ctx := context.Background()

	Screening(ctx, "r-1", 42, 12.5)
	Alert(ctx, "high_risk_threshold", "threshold", 10.0)

	got := lines(t, buf)
	require.Len(t, got, 2)
	assert.Equal(t, "SCREENING", got[0]["type"])
	assert.Equal(t, float64(42), got[0]["transactions"])
	assert.Equal(t, "ALERT", got[1]["type"])
	assert.Equal(t, "WARN", got[1]["level"])
}

func TestScreeningFollowsLevel(t *testing.T) {
	buf := captureLogs(t, "WARN", false)
	ctx := context.Background()

	Screening(ctx, "r-1", 42, 12.5)
	Alert(ctx, "high_risk_threshold")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "ALERT", got[0]["type"])
}

func TestOperationTimer(t *testing.T) {
	buf := captureLogs(t, "DEBUG", true)

	op := StartOperation(context.Background(), "score", "transactions", 10)
	assert.GreaterOrEqual(t, op.End("high", 2).Nanoseconds(), int64(0))

	op = StartOperation(context.Background(), "network")
	op.EndWithError(errors.New("budget exceeded"))

	got := lines(t, buf)
	require.Len(t, got, 4)
	assert.Equal(t, "Operation completed", got[1]["msg"])
	assert.Equal(t, float64(2), got[1]["high"])
	assert.Equal(t, "Operation failed", got[3]["msg"])
	assert.Equal(t, "budget exceeded", got[3]["error"])
}

func TestOperationFinishLogsAtDebug(t *testing.T) {
	buf := captureLogs(t, "INFO", true)

	op := StartOperation(context.Background(), "compliance.anomaly")
	op.Finish(errors.New("too few rows"))
	assert.Empty(t, lines(t, buf))

	buf = captureLogs(t, "DEBUG", true)
	op = StartOperation(context.Background(), "compliance.anomaly")
	op.Finish(errors.New("too few rows"))

	got := lines(t, buf)
	require.Len(t, got, 2)
	assert.Equal(t, "Operation finished", got[1]["msg"])
	assert.Equal(t, "too few rows", got[1]["error"])
}

func TestDetailedLoggingAddsSource(t *testing.T) {
	buf := captureLogs(t, "INFO", true)

	Info(context.Background(), "with source")
	Debug(context.Background(), "below level")

	got := lines(t, buf)
	require.Len(t, got, 1)
	source, ok := got[0]["source"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, source["file"], "logger_test.go")
	assert.True(t, IsDebugEnabled())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "text", cfg.Format)
	assert.False(t, cfg.TracingEnabled)
	assert.Equal(t, slog.LevelDebug, parseLogLevel(cfg.Level))
}

func TestDiscardBeforeInit(t *testing.T) {
	prev := globalLogger
	t.Cleanup(func() { globalLogger = prev })
	globalLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.NotPanics(t, func() {
		Info(context.Background(), "nobody listens")
	})
}
