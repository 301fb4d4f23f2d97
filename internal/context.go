package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextUserIDKey  ctxKey = "userID"
	ContextTraceIDKey ctxKey = "traceID"
)

// DefaultTimeout bounds storage pings and other short calls.
const DefaultTimeout = 5 * time.Second

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ContextUserIDKey).(string)
	return id
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextUserIDKey, userID)
}

// TraceIDFromContext returns the X-Trace-ID of the request being served.
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ContextTraceIDKey).(string)
	return id
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ContextTraceIDKey, traceID)
}

// WithTimeout falls back to DefaultTimeout when d is not positive.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
