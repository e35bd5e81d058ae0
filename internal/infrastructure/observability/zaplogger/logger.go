package zaplogger

import (
	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/pkg/logging"
	"go.uber.org/zap"
)

type Logger struct{ l *zap.Logger }

// New builds the service's JSON logger and adapts it to observability.Logger.
func New(service, env string) (*Logger, error) {
	l, err := logging.NewLogger(service, env)
	if err != nil {
		return nil, err
	}
	return Wrap(l), nil
}

// Wrap adapts an existing zap logger. A nil logger falls back to zap.L().
func Wrap(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.L()
	}
	return &Logger{l: l}
}

func (z *Logger) With(fields ...observability.Field) observability.Logger {
	if len(fields) == 0 {
		return &Logger{l: z.l}
	}
	return &Logger{l: z.l.With(toZapFields(fields)...)}
}

func (z *Logger) Debug(msg string, fields ...observability.Field) {
	z.l.Debug(msg, toZapFields(fields)...)
}
func (z *Logger) Info(msg string, fields ...observability.Field) {
	z.l.Info(msg, toZapFields(fields)...)
}
func (z *Logger) Warn(msg string, fields ...observability.Field) {
	z.l.Warn(msg, toZapFields(fields)...)
}
func (z *Logger) Error(msg string, fields ...observability.Field) {
	z.l.Error(msg, toZapFields(fields)...)
}

// Zap exposes the underlying logger for libraries that want one directly.
func (z *Logger) Zap() *zap.Logger { return z.l }

// Sync flushes any buffered log entries. Safe to call on shutdown.
func (z *Logger) Sync() error {
	return z.l.Sync()
}

func toZapFields(fs []observability.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fs))
	for _, f := range fs {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
