package observability

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"

	// AttrComponent names the subsystem emitting a record.
	AttrComponent = "component"
)

// Component returns logger tagged with the given subsystem name. A nil
// logger yields a discarding one.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return logger.With(slog.String(AttrComponent, name))
}

// TracingHandler is an [slog.Handler] that adds the active span's trace_id
// and span_id to every record. The service, env and mode attributes are
// attached once at construction, outside any group. Trace attributes stay
// at the top level even when groups are open: the inner handler is never
// grouped and open groups are rebuilt on each record.
type TracingHandler struct {
	inner  slog.Handler
	frames []groupFrame
}

// groupFrame is an open group and the attributes added inside it.
type groupFrame struct {
	name  string
	attrs []slog.Attr
}

// NewTracingHandler wraps inner. An empty env is omitted.
func NewTracingHandler(inner slog.Handler, service, env string, appMode AppMode) *TracingHandler {
	attrs := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(appMode)),
	}

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &TracingHandler{
		inner: inner.WithAttrs(attrs),
	}
}

func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds the trace context, if any, and delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	out := record

	if len(th.frames) > 0 {
		out = slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	}

	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		out.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if len(th.frames) > 0 {
		out.AddAttrs(th.nest(record)...)
	}

	err := th.inner.Handle(ctx, out)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// nest wraps the record's attributes in the open groups, innermost first.
func (th *TracingHandler) nest(record slog.Record) []slog.Attr {
	cur := make([]slog.Attr, 0, record.NumAttrs())

	record.Attrs(func(a slog.Attr) bool {
		cur = append(cur, a)

		return true
	})

	for i := len(th.frames) - 1; i >= 0; i-- {
		frame := th.frames[i]
		attrs := append(slices.Clone(frame.attrs), cur...)
		cur = []slog.Attr{{Key: frame.name, Value: slog.GroupValue(attrs...)}}
	}

	return cur
}

// WithAttrs implements [slog.Handler].
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return th
	}

	if len(th.frames) == 0 {
		return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
	}

	frames := slices.Clone(th.frames)
	last := &frames[len(frames)-1]
	last.attrs = append(slices.Clone(last.attrs), attrs...)

	return &TracingHandler{inner: th.inner, frames: frames}
}

// WithGroup implements [slog.Handler].
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return th
	}

	frames := append(slices.Clone(th.frames), groupFrame{name: name})

	return &TracingHandler{inner: th.inner, frames: frames}
}
