package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies this library's tracer. The host process installs the
// otel SDK and exporters; without one these calls are no-ops.
const tracerName = "github.com/erp/ledger"

// StartServiceSpan starts a span named "<service>.<operation>"
func StartServiceSpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, fmt.Sprintf("%s.%s", service, operation))
}

// SetAttributes sets alternating key/value pairs on a span
func SetAttributes(span trace.Span, keyValues ...interface{}) {
	for i := 0; i+1 < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			continue
		}
		span.SetAttributes(toAttribute(key, keyValues[i+1]))
	}
}

// RecordError records err on the span and marks the span as failed
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func toAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
