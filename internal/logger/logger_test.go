package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"dev", "prod", "production", ""} {
		t.Run(env, func(t *testing.T) {
			l := New(env)
			require.NotNil(t, l)
			l.Info("hello")
		})
	}
}

func TestNewRespectsLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	l := New("dev")
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.ErrorLevel))
}

func TestSetAndHelpers(t *testing.T) {
	prev := Get()
	defer Set(prev)

	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))

	Info("info", zap.Int("n", 1))
	Warn("warn")
	Error("error")
	With(zap.String("k", "v")).Debug("debug")

	require.Equal(t, 4, logs.Len())
	entries := logs.All()
	assert.Equal(t, "info", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "v", entries[3].ContextMap()["k"])
}
