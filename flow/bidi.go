package flow

import (
	"context"
	"iter"
	"sync"

	"github.com/BaSui01/flowkit/action"
	"github.com/BaSui01/flowkit/internal/queue"
	"github.com/BaSui01/flowkit/registry"
	"github.com/BaSui01/flowkit/schema"
	"github.com/BaSui01/flowkit/tracing"
	"github.com/BaSui01/flowkit/types"
)

// Incoming is the receive side of a bidi session, handed to the flow body.
type Incoming[In any] struct {
	q *queue.Unbounded[In]
}

// Recv blocks for the next inbound item. ok=false means the client closed
// the input side.
func (in *Incoming[In]) Recv(ctx context.Context) (In, bool, error) {
	return in.q.Pop(ctx)
}

// All iterates inbound items until the input side closes or ctx is done.
func (in *Incoming[In]) All(ctx context.Context) iter.Seq2[In, error] {
	return func(yield func(In, error) bool) {
		for {
			v, ok, err := in.q.Pop(ctx)
			if err != nil {
				var zero In
				yield(zero, err)
				return
			}
			if !ok {
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// BidiFunc is the body of a bidirectional flow: it consumes inbound items,
// emits outbound chunks through send, and finishes with a final value.
type BidiFunc[Init, In, Out, Final any] func(ctx context.Context, init Init, in *Incoming[In], send action.StreamCallback[Out]) (Final, error)

// BidiFlow is a flow whose client and body exchange streams in both
// directions for the lifetime of a session.
type BidiFlow[Init, In, Out, Final any] struct {
	name     string
	reg      *registry.Registry
	initOpts schema.Options
	fn       BidiFunc[Init, In, Out, Final]
}

// DefineBidi declares a bidirectional flow on r. The Init type's inferred
// schema gates Start.
func DefineBidi[Init, In, Out, Final any](r *registry.Registry, name string, fn BidiFunc[Init, In, Out, Final]) *BidiFlow[Init, In, Out, Final] {
	inferred, err := schema.Infer[Init]()
	if err != nil {
		panic("bidi flow " + name + ": infer init schema: " + err.Error())
	}
	return &BidiFlow[Init, In, Out, Final]{
		name:     name,
		reg:      r,
		initOpts: schema.Options{JSONSchema: inferred},
		fn:       fn,
	}
}

// Name returns the flow name.
func (f *BidiFlow[Init, In, Out, Final]) Name() string { return f.name }

// Session is the client half of a running bidi flow.
type Session[In, Out, Final any] struct {
	in        *queue.Unbounded[In]
	resp      *StreamingResponse[Final, Out]
	closeOnce sync.Once
}

// Send delivers one inbound item to the flow body. It never blocks; it
// fails once the input side is closed.
func (s *Session[In, Out, Final]) Send(v In) error {
	if !s.in.Push(v) {
		return types.NewError(types.StatusFailedPrecondition, "session input is closed")
	}
	return nil
}

// Close ends the input side. The flow body observes it as Recv returning
// ok=false. Close before waiting on Output, or a body that reads all input
// will wait forever. Idempotent.
func (s *Session[In, Out, Final]) Close() {
	s.closeOnce.Do(func() { s.in.Close(nil) })
}

// Stream iterates outbound chunks, ending when the flow body returns.
func (s *Session[In, Out, Final]) Stream(ctx context.Context) iter.Seq2[Out, error] {
	return s.resp.Stream(ctx)
}

// Output blocks until the flow body returns and yields its final value.
func (s *Session[In, Out, Final]) Output(ctx context.Context) (Final, error) {
	return s.resp.Output(ctx)
}

// Start validates init and launches a session. The body runs in its own
// goroutine inside a flow span; ctx cancellation tears the session down.
func (f *BidiFlow[Init, In, Out, Final]) Start(ctx context.Context, init Init) (*Session[In, Out, Final], error) {
	if err := schema.Parse(init, f.initOpts); err != nil {
		return nil, types.NewError(types.StatusInvalidArgument,
			"invalid init for bidi flow %q", f.name).WithCause(err)
	}

	s := &Session[In, Out, Final]{
		in: queue.NewUnbounded[In](),
		resp: &StreamingResponse[Final, Out]{
			chunks: queue.NewUnbounded[Out](),
			done:   make(chan struct{}),
		},
	}

	send := func(_ context.Context, chunk Out) error {
		s.resp.chunks.Push(chunk)
		return nil
	}

	go func() {
		ctx := action.WithFlowName(ctx, f.name)
		out, err := tracing.RunInNewSpan(ctx, f.reg.Tracer(), f.name, "action", "bidi", init,
			func(ctx context.Context, init Init) (Final, error) {
				return f.fn(ctx, init, &Incoming[In]{q: s.in}, send)
			})
		s.resp.out, s.resp.err = out, err
		close(s.resp.done)
		s.resp.chunks.Close(err)
	}()

	return s, nil
}
