package sensei_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

func TestZapLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := sensei.NewZapLogger(zap.New(core))

	logger.Debug("HTTP Request", map[string]interface{}{"method": "GET", "path": "/v1/partners/products"})
	logger.Info("started", nil)
	logger.Warn("Rate limited, backing off", map[string]interface{}{"attempt": 1, "wait": "2s"})
	logger.Error("failed", map[string]interface{}{"error": "boom"})

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "HTTP Request", entries[0].Message)
	assert.Equal(t, map[string]interface{}{"method": "GET", "path": "/v1/partners/products"}, entries[0].ContextMap())

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Empty(t, entries[1].Context)

	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "attempt", entries[2].Context[0].Key, "fields are sorted by key")
	assert.Equal(t, "wait", entries[2].Context[1].Key)

	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])

	require.NoError(t, logger.Sync())
}

func TestZapLogger_NilUsesNop(t *testing.T) {
	t.Parallel()

	logger := sensei.NewZapLogger(nil)

	assert.NotPanics(t, func() {
		logger.Info("discarded", map[string]interface{}{"k": "v"})
	})
}

func TestNoopLogger(t *testing.T) {
	t.Parallel()

	var logger sensei.Logger = sensei.NoopLogger{}

	assert.NotPanics(t, func() {
		logger.Debug("x", nil)
		logger.Info("x", nil)
		logger.Warn("x", nil)
		logger.Error("x", nil)
	})
}
