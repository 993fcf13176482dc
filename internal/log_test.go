package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"error": LogLevelError,
		"WARN":  LogLevelWarn,
		"":      LogLevelInfo,
		"Debug": LogLevelDebug,
		"trace": LogLevelTrace,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestLogger_TraceGatedByLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	debug := FromZap(zap.New(core), LogLevelDebug)
	debug.Trace("hidden %d", 1)
	debug.Debug("shown %d", 2)

	trace := FromZap(zap.New(core), LogLevelTrace)
	trace.Trace("shown %d", 3)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "shown 2", entries[0].Message)
	assert.Equal(t, "[TRACE] shown 3", entries[1].Message)
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(LogLevelWarn, "console")
	require.NoError(t, err)
	assert.Equal(t, LogLevelWarn, l.GetLevel())
	assert.False(t, l.Zap().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Zap().Core().Enabled(zapcore.WarnLevel))
}
