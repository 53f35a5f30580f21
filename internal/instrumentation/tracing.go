package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer name for this module.
const TracerName = "github.com/CJuwaneme1704/SentinelIQ"

// Span attribute keys for ingestion and provider operations.
const (
	SpanAttrOperation = "sentineliq.operation"
	SpanAttrAccountID = "sentineliq.account_id"
	SpanAttrMessageID = "sentineliq.message_id"
)

// StartSpan starts a span on the given tracer with the operation
// attribute set.
func StartSpan(ctx context.Context, tracer trace.Tracer, name, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{
		attribute.String(SpanAttrOperation, operation),
	}, attrs...)
	return tracer.Start(ctx, name, trace.WithAttributes(all...))
}

// EndSpan finalizes a span, recording err when non-nil.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
