package flow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BaSui01/flowkit/tracing"
	"github.com/BaSui01/flowkit/types"
)

// Run executes a named step inside a flow. Steps are memoized per
// invocation: the i-th call with a given name maps to cache key "name|i",
// and a cache hit returns the recorded result without re-executing fn.
// Outside a flow the step runs uncached.
func Run[T any](ctx context.Context, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	fc := flowContextFrom(ctx)
	if fc == nil {
		return runStepSpan(ctx, name, fn)
	}

	key := fmt.Sprintf("%s|%d", name, fc.nextOccurrence(name))
	if raw, ok := fc.cached(key); ok {
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, types.NewError(types.StatusInternal,
				"decode cached result of step %q", key).WithCause(err)
		}
		return out, nil
	}

	out, err := runStepSpan(ctx, name, fn)
	if err != nil {
		return out, err
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return out, types.NewError(types.StatusInternal,
			"encode result of step %q", key).WithCause(err)
	}
	fc.record(ctx, key, raw)
	return out, nil
}

func runStepSpan[T any](ctx context.Context, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	t := tracing.TracerFromContext(ctx)
	if t == nil {
		return fn(ctx)
	}
	return tracing.RunInNewSpan(ctx, t, name, "flowStep", "", struct{}{},
		func(ctx context.Context, _ struct{}) (T, error) {
			return fn(ctx)
		})
}
