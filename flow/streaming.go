package flow

import (
	"context"
	"iter"

	"github.com/BaSui01/flowkit/internal/queue"
)

// StreamingResponse is the consumer side of a streaming flow invocation:
// a chunk sequence plus the final output.
type StreamingResponse[O, S any] struct {
	chunks *queue.Unbounded[S]
	done   chan struct{}
	out    O
	err    error
}

// Stream iterates the chunks in production order. On a producer error the
// sequence yields one final (zero, err) pair and stops; a clean end simply
// stops. Stream may be ranged at most once per response.
func (r *StreamingResponse[O, S]) Stream(ctx context.Context) iter.Seq2[S, error] {
	return func(yield func(S, error) bool) {
		for {
			chunk, ok, err := r.chunks.Pop(ctx)
			if err != nil {
				var zero S
				yield(zero, err)
				return
			}
			if !ok {
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Output blocks until the flow finishes and returns its result. It is valid
// to call Output without draining Stream; chunks are buffered unboundedly.
func (r *StreamingResponse[O, S]) Output(ctx context.Context) (O, error) {
	select {
	case <-r.done:
		return r.out, r.err
	case <-ctx.Done():
		var zero O
		return zero, ctx.Err()
	}
}

// Stream starts the flow and returns immediately. The producer runs in its
// own goroutine; it never blocks on a slow consumer.
func (f *Flow[I, O, S]) Stream(ctx context.Context, input I, opts ...RunOption) *StreamingResponse[O, S] {
	resp := &StreamingResponse[O, S]{
		chunks: queue.NewUnbounded[S](),
		done:   make(chan struct{}),
	}

	cb := func(_ context.Context, chunk S) error {
		resp.chunks.Push(chunk)
		return nil
	}

	go func() {
		out, err := f.run(ctx, input, cb, opts...)
		resp.out, resp.err = out, err
		close(resp.done)
		// Stream errors surface through Stream as well as Output.
		resp.chunks.Close(err)
	}()

	return resp
}
