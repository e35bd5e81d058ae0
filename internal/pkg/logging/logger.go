package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SystemTraceID marks log lines emitted outside any request or event trace.
const SystemTraceID = "system"

// Options holds the environment-driven settings of NewLogger.
type Options struct {
	Level zapcore.Level
	// File, when set, receives a copy of every line written to stdout.
	File string
}

// OptionsFromEnv reads LOG_LEVEL (default info) and LOG_FILE.
func OptionsFromEnv() (Options, error) {
	opts := Options{Level: zapcore.InfoLevel, File: os.Getenv("LOG_FILE")}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		lvl, err := zapcore.ParseLevel(raw)
		if err != nil {
			return Options{}, fmt.Errorf("logging: LOG_LEVEL: %w", err)
		}
		opts.Level = lvl
	}
	return opts, nil
}

// NewLogger builds the JSON logger every component writes through, tagged
// with service and env.
func NewLogger(service, env string) (*zap.Logger, error) {
	opts, err := OptionsFromEnv()
	if err != nil {
		return nil, err
	}
	return opts.Build(service, env)
}

func (o Options) Build(service, env string) (*zap.Logger, error) {
	sinks := []string{"stdout"}
	if o.File != "" {
		if err := os.MkdirAll(filepath.Dir(o.File), 0o755); err != nil {
			return nil, fmt.Errorf("logging: LOG_FILE directory: %w", err)
		}
		sinks = append(sinks, o.File)
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.MessageKey = "msg"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.EncodeLevel = zapcore.LowercaseLevelEncoder

	return zap.Config{
		Level:            zap.NewAtomicLevelAt(o.Level),
		Encoding:         "json",
		EncoderConfig:    enc,
		OutputPaths:      sinks,
		ErrorOutputPaths: sinks,
		Sampling:         &zap.SamplingConfig{Initial: 100, Thereafter: 100},
		InitialFields:    map[string]any{"service": service, "env": env},
	}.Build()
}

// WithSystemTrace tags logger with the system trace and span ids used for
// startup and shutdown lines.
func WithSystemTrace(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger = zap.L()
	}
	return logger.With(
		zap.String("trace_id", SystemTraceID),
		zap.String("span_id", SystemTraceID),
	)
}
