package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_WritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	t.Setenv("LOG_FILE", path)
	t.Setenv("LOG_LEVEL", "debug")

	l, err := NewLogger("invoicing", "test")
	require.NoError(t, err)
	l.Debug("hello")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"service":"invoicing"`)
	assert.Contains(t, string(data), `"level":"debug"`)
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FILE", "")

	opts, err := OptionsFromEnv()
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, opts.Level)
	assert.Empty(t, opts.File)

	t.Setenv("LOG_LEVEL", "warn")
	opts, err = OptionsFromEnv()
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, opts.Level)
}

func TestNewLogger_BadLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")

	_, err := NewLogger("invoicing", "test")
	assert.ErrorContains(t, err, "LOG_LEVEL")
}

func TestWithSystemTrace(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	WithSystemTrace(zap.New(core)).Info("boot")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, SystemTraceID, fields["trace_id"])
	assert.Equal(t, SystemTraceID, fields["span_id"])
}
