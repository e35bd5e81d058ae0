package zaplogger

import (
	"errors"
	"testing"

	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_WithAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := Wrap(zap.New(core)).With(observability.F("component", "test"))

	log.Info("payment_evaluated", observability.F("reference", "INV001"))
	log.Warn("payment_event_publish_failed", observability.F("error", errors.New("queue closed")))

	require.Equal(t, 2, logs.Len())
	first := logs.All()[0]
	assert.Equal(t, "payment_evaluated", first.Message)
	assert.Equal(t, "test", first.ContextMap()["component"])
	assert.Equal(t, "INV001", first.ContextMap()["reference"])

	second := logs.All()[1]
	assert.Equal(t, zapcore.WarnLevel, second.Level)
	assert.Equal(t, "queue closed", second.ContextMap()["error"])
}

func TestLogger_WithoutFieldsKeepsLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := Wrap(zap.New(core))

	log.With().Debug("dropped")
	log.With().Error("kept")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
}
