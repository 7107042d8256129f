package tracing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span states recorded in the genkit:state attribute.
const (
	StateSuccess = "success"
	StateError   = "error"
)

// SpanMetadata accumulates the attributes of one execution span. It is
// created by RunInNewSpan and flushed onto the OpenTelemetry span when the
// wrapped function returns.
type SpanMetadata struct {
	Name    string
	Type    string
	Subtype string
	IsRoot  bool
	Path    string
	State   string
	Input   string
	Output  string

	mu       sync.Mutex
	metadata map[string]string
}

// SetMetadata attaches a custom attribute, surfaced as genkit:metadata:<key>.
// Safe for concurrent use.
func (sm *SpanMetadata) SetMetadata(key, value string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.metadata == nil {
		sm.metadata = make(map[string]string)
	}
	sm.metadata[key] = value
}

func (sm *SpanMetadata) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("genkit:name", sm.Name),
		attribute.String("genkit:path", sm.Path),
		attribute.String("genkit:type", sm.Type),
		attribute.String("genkit:state", sm.State),
	}
	if sm.IsRoot {
		attrs = append(attrs, attribute.Bool("genkit:isRoot", true))
	}
	if sm.Input != "" {
		attrs = append(attrs, attribute.String("genkit:input", sm.Input))
	}
	if sm.Output != "" {
		attrs = append(attrs, attribute.String("genkit:output", sm.Output))
	}
	sm.mu.Lock()
	for k, v := range sm.metadata {
		attrs = append(attrs, attribute.String("genkit:metadata:"+k, v))
	}
	sm.mu.Unlock()
	return attrs
}

type spanMetaKey struct{}
type tracerKey struct{}

// SpanMeta returns the metadata of the innermost active span, if any.
func SpanMeta(ctx context.Context) (*SpanMetadata, bool) {
	sm, ok := ctx.Value(spanMetaKey{}).(*SpanMetadata)
	return sm, ok
}

// MustSpanMeta is SpanMeta for call sites that are only reachable inside a
// span; it panics outside one.
func MustSpanMeta(ctx context.Context) *SpanMetadata {
	sm, ok := SpanMeta(ctx)
	if !ok {
		panic("tracing: no active span in context")
	}
	return sm
}

// WithTracer stashes t in ctx so nested executions reuse the same pipeline.
func WithTracer(ctx context.Context, t *Tracer) context.Context {
	return context.WithValue(ctx, tracerKey{}, t)
}

// TracerFromContext returns the ambient Tracer, or nil when none is set.
func TracerFromContext(ctx context.Context) *Tracer {
	t, _ := ctx.Value(tracerKey{}).(*Tracer)
	return t
}

// pathSegment renders one step of the execution path, e.g.
// "{summarize,t:action,s:tool}".
func pathSegment(name, spanType, subtype string) string {
	if subtype != "" {
		return fmt.Sprintf("{%s,t:%s,s:%s}", name, spanType, subtype)
	}
	return fmt.Sprintf("{%s,t:%s}", name, spanType)
}

// RunInNewSpan executes fn inside a new span. The span's root flag and path
// derive from the ambient parent span: a context with no parent produces a
// root span with path "/{name,...}". The error from fn is returned unchanged
// after being recorded on the span.
func RunInNewSpan[I, O any](
	ctx context.Context,
	t *Tracer,
	name, spanType, subtype string,
	input I,
	fn func(context.Context, I) (O, error),
) (O, error) {
	parent, hasParent := SpanMeta(ctx)

	sm := &SpanMetadata{
		Name:    name,
		Type:    spanType,
		Subtype: subtype,
		IsRoot:  !hasParent,
		Path:    pathSegment(name, spanType, subtype),
		Input:   jsonString(input),
	}
	if hasParent {
		sm.Path = parent.Path + "/" + sm.Path
	} else {
		sm.Path = "/" + sm.Path
	}
	if subtype != "" {
		sm.SetMetadata("subtype", subtype)
	}

	ctx, span := t.otel().Start(ctx, name)
	ctx = context.WithValue(ctx, spanMetaKey{}, sm)
	ctx = WithTracer(ctx, t)

	// The span must close even when fn panics; the panic then continues up
	// the stack with the error state already recorded.
	defer func() {
		if r := recover(); r != nil {
			sm.State = StateError
			span.SetStatus(codes.Error, fmt.Sprint(r))
			span.SetAttributes(sm.attributes()...)
			span.End()
			panic(r)
		}
	}()

	output, err := fn(ctx, input)

	if err != nil {
		sm.State = StateError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		sm.State = StateSuccess
		sm.Output = jsonString(output)
	}
	span.SetAttributes(sm.attributes()...)
	span.End()

	return output, err
}

// SpanFromContext exposes the raw OpenTelemetry span for callers that need
// to attach events or links beyond the genkit attribute set.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

func jsonString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
