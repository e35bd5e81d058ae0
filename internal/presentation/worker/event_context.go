package workerpresentation

import (
	"context"
	"sort"

	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability/logctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// WithEventContext puts an execution-scoped logger on ctx for background work.
// It always carries an event_id (generated when attrs has none), the trace and
// span ids when valid, and the remaining non-empty attrs in key order. Keep
// attrs low-cardinality: event name, use case, queue.
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	traceID trace.TraceID,
	spanID trace.SpanID,
	attrs map[string]string,
) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields := []observability.Field{observability.F("event_id", evtID)}

	if traceID.IsValid() {
		fields = append(fields, observability.F("trace_id", traceID.String()))
	}
	if spanID.IsValid() {
		fields = append(fields, observability.F("span_id", spanID.String()))
	}

	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, observability.F(k, attrs[k]))
	}

	return logctx.With(ctx, base.With(fields...))
}
