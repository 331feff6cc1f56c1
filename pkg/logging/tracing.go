package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/smartrecover/pkg/masking"
)

type traceIDKey struct{}

// tracingEnabled gates operation tracing; flipped at runtime by the admin
// logging-config endpoint.
var tracingEnabled atomic.Bool

// NewTraceID generates a trace identifier for one request.
func NewTraceID() string {
	return uuid.NewString()
}

// ContextWithTraceID attaches a trace ID to the context.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFrom returns the trace ID from the context, or "".
func TraceIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return id
	}
	return ""
}

// SetTracing toggles operation tracing at runtime.
func SetTracing(enabled bool) {
	tracingEnabled.Store(enabled)
}

// TracingEnabled reports whether operation tracing is active.
func TracingEnabled() bool {
	return tracingEnabled.Load()
}

// Trace logs the start of a named operation at debug level and returns a
// func to call on completion with the operation's error. Arguments pass
// through masking before they reach the log. A no-op while tracing is off.
func Trace(ctx context.Context, name string, args map[string]any) func(err error) {
	if !tracingEnabled.Load() {
		return func(error) {}
	}

	slog.DebugContext(ctx, "TRACE enter "+name, "args", masking.RedactArgs(args))
	start := time.Now()

	return func(err error) {
		attrs := []any{"duration_ms", time.Since(start).Milliseconds()}
		if err != nil {
			attrs = append(attrs, "error", masking.RedactText(err.Error()))
		}
		slog.DebugContext(ctx, "TRACE exit "+name, attrs...)
	}
}

// traceHandler stamps records logged through a *Context call with the
// request's trace ID.
type traceHandler struct{ slog.Handler }

// WithTraceIDs wraps a handler so every record whose context carries a
// trace ID gets a trace_id attribute.
func WithTraceIDs(h slog.Handler) slog.Handler {
	return traceHandler{h}
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := TraceIDFrom(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}
