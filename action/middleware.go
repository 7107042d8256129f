package action

import "context"

// StreamCallback receives streaming chunks during execution. Returning an
// error aborts the producing action.
type StreamCallback[S any] func(ctx context.Context, chunk S) error

// Fn is the function shape an action wraps. Non-streaming actions receive a
// nil callback.
type Fn[I, O, S any] func(ctx context.Context, input I, cb StreamCallback[S]) (O, error)

// Middleware wraps an action function. The middleware decides whether and
// how to call next.
type Middleware[I, O, S any] func(next Fn[I, O, S]) Fn[I, O, S]

// ChainMiddleware composes middlewares into one. The first middleware is the
// outermost: it sees the request first and the response last.
func ChainMiddleware[I, O, S any](ms ...Middleware[I, O, S]) Middleware[I, O, S] {
	return func(next Fn[I, O, S]) Fn[I, O, S] {
		for i := len(ms) - 1; i >= 0; i-- {
			next = ms[i](next)
		}
		return next
	}
}
