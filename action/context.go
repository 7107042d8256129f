package action

import (
	"context"
	"encoding/json"
)

// Context carries per-request ambient data (auth claims, tenant, locale)
// across action and flow boundaries. It is distinct from span metadata: it
// flows to the wrapped function, not to the trace.
type Context map[string]any

type requestCtxKey struct{}

// WithContext attaches c to ctx. A nil c is stored as an empty non-nil
// Context so callers can distinguish "explicitly set" from "absent".
func WithContext(ctx context.Context, c Context) context.Context {
	if c == nil {
		c = Context{}
	}
	return context.WithValue(ctx, requestCtxKey{}, c)
}

// FromContext returns the ambient request Context, or nil when none was set.
func FromContext(ctx context.Context) Context {
	c, _ := ctx.Value(requestCtxKey{}).(Context)
	return c
}

type flowNameKey struct{}

// WithFlowName records the name of the enclosing flow for metrics labeling.
func WithFlowName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, flowNameKey{}, name)
}

// FlowName returns the enclosing flow's name, or "" outside a flow.
func FlowName(ctx context.Context) string {
	name, _ := ctx.Value(flowNameKey{}).(string)
	return name
}

type chunkSenderKey struct{}

type chunkSender func(ctx context.Context, chunk any) error

func withChunkSender(ctx context.Context, send chunkSender) context.Context {
	return context.WithValue(ctx, chunkSenderKey{}, send)
}

// SendChunk forwards chunk to the consumer of the innermost streaming
// execution. Outside a streaming execution it is a silent no-op, so
// library code can stream unconditionally.
func SendChunk(ctx context.Context, chunk any) error {
	send, ok := ctx.Value(chunkSenderKey{}).(chunkSender)
	if !ok || send == nil {
		return nil
	}
	return send(ctx, chunk)
}

// convertChunk coerces an untyped chunk into S, falling back to a JSON
// round trip when the dynamic type does not match.
func convertChunk[S any](chunk any) (S, error) {
	if s, ok := chunk.(S); ok {
		return s, nil
	}
	var s S
	b, err := json.Marshal(chunk)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, err
	}
	return s, nil
}
