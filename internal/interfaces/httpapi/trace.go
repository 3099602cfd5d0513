package httpapi

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var apiTracer = otel.Tracer("best-odds/internal/interfaces/httpapi")
var noopSpan = trace.SpanFromContext(context.Background())

// startSpan opens a child span for handler entry points only. Middleware
// and response helpers share the handler span through ctx.
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() {
		// Filtered routes like /healthz carry no parent span.
		return ctx, noopSpan
	}
	if !shouldCreateHTTPAPISpan(name) {
		return ctx, noopSpan
	}
	return apiTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func shouldCreateHTTPAPISpan(name string) bool {
	return strings.HasPrefix(name, "httpapi.Handler.")
}

// annotateMatchdaySpan tags the active span with how the board was served.
func annotateMatchdaySpan(ctx context.Context, cacheResult string, classification string, status int) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.String("matchday.cache", cacheResult),
		attribute.String("matchday.classification", classification),
		attribute.Int("http.response.status_code", status),
	)
	if status >= 500 {
		span.SetStatus(codes.Error, classification)
	}
}

// recordSpanError marks the active span failed with the client-facing
// message, never the wrapped cause.
func recordSpanError(ctx context.Context, status int, message string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if status >= 500 {
		span.SetStatus(codes.Error, message)
		return
	}
	span.AddEvent("request rejected", trace.WithAttributes(attribute.String("error.message", message)))
}
