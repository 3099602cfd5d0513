package logging

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID stores the inbound request id so every log line written
// with the context carries it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(requestIDKey).(string)
	return v, ok && v != ""
}

func requestFields(ctx context.Context) []zap.Field {
	requestID, ok := RequestIDFromContext(ctx)
	if !ok {
		return nil
	}
	return []zap.Field{zap.String("request_id", requestID)}
}
