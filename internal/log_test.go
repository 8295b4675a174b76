package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerFiltersByLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLoggerFromZap(LogLevelInfo, zap.New(core))

	logger.Info("[DataReader] read %d rows", 3)
	logger.Debug("hidden")
	logger.Trace("hidden too")
	logger.Warn("careful")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "[DataReader] read 3 rows", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestLoggerTraceUsesDebugWithPrefix(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLoggerFromZap(LogLevelTrace, zap.New(core))

	logger.Trace("cell %s", "B2")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "[TRACE] cell B2", logs.All()[0].Message)
}

func TestLoggerWithAddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := NewLoggerFromZap(LogLevelInfo, zap.New(core)).With("upload_id", "u-1")

	logger.Info("accepted")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "u-1", logs.All()[0].ContextMap()["upload_id"])
}

func TestParseLogLevel(t *testing.T) {
	level, ok := ParseLogLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, LogLevelDebug, level)

	level, ok = ParseLogLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, LogLevelInfo, level)
}
