package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracer struct{ t trace.Tracer }

// New returns a tracer resolved from the global provider. Until a
// TracerProvider with an exporter is installed via otel.SetTracerProvider,
// spans are non-recording.
func New(name string) observability.Tracer {
	if name == "" {
		name = "invoicing"
	}
	return &tracer{t: otel.Tracer(name)}
}

// FromProvider binds to an explicit provider instead of the global one.
func FromProvider(tp trace.TracerProvider, name string) observability.Tracer {
	return &tracer{t: tp.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}
