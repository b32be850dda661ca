package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	accountIDKey
)

// WithRequestID stores the request id on the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored on the context, if any
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithAccountID stores the authenticated account id on the context
func WithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

// ContextLogger provides context-aware logging
type ContextLogger struct {
	logger *zap.SugaredLogger
}

func NewContextLogger(logger *zap.SugaredLogger) *ContextLogger {
	return &ContextLogger{logger: logger}
}

// For returns a logger carrying request_id, account_id and trace_id when present
func (cl *ContextLogger) For(ctx context.Context) *zap.SugaredLogger {
	var fields []interface{}

	if id := RequestID(ctx); id != "" {
		fields = append(fields, "request_id", id)
	}
	if id, ok := ctx.Value(accountIDKey).(string); ok && id != "" {
		fields = append(fields, "account_id", id)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields = append(fields, "trace_id", sc.TraceID().String())
	}

	if len(fields) == 0 {
		return cl.logger
	}
	return cl.logger.With(fields...)
}

// LogRequest logs an HTTP request with context
func (cl *ContextLogger) LogRequest(ctx context.Context, method, path string, statusCode int, durationMS int64) {
	l := cl.For(ctx)
	if statusCode >= 500 {
		l.Errorw("http_request", "method", method, "path", path, "status_code", statusCode, "duration_ms", durationMS)
		return
	}
	l.Infow("http_request", "method", method, "path", path, "status_code", statusCode, "duration_ms", durationMS)
}
