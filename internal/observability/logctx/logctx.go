package logctx

import (
	"context"

	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability"
)

type loggerKey struct{}

// With stores logger on the context.
func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// From returns the context logger, or nil.
func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(observability.Logger)
	return logger
}

func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if logger := From(ctx); logger != nil {
		return logger
	}
	return fallback
}

// Enrich adds fields to the context logger (or fallback) and stores the
// result back, so callees further down log with the same fields.
func Enrich(ctx context.Context, fallback observability.Logger, fields ...observability.Field) (context.Context, observability.Logger) {
	logger := FromOr(ctx, fallback)
	if logger == nil {
		logger = observability.NopLogger()
	}
	logger = logger.With(fields...)
	return With(ctx, logger), logger
}
