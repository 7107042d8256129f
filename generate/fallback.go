package generate

import (
	"context"

	"github.com/BaSui01/flowkit/action"
	"github.com/BaSui01/flowkit/types"
)

// defaultFallback extends the transient set with statuses that mean "this
// model cannot serve the request at all", where another model might.
var defaultFallback = append([]types.Status{
	types.StatusNotFound,
	types.StatusUnimplemented,
}, defaultRetryable...)

// FallbackOptions configures the Fallback middleware.
type FallbackOptions struct {
	// Statuses that trigger a fallback. Defaults to the retryable set plus
	// NOT_FOUND and UNIMPLEMENTED.
	Statuses []types.Status
	// OnError observes each model failure before the next candidate runs.
	OnError func(ctx context.Context, modelName string, err error)
}

// Fallback returns model middleware that, when the wrapped model fails with
// an eligible status, retries the request against each fallback model in
// order. Ineligible failures (INVALID_ARGUMENT and other caller bugs)
// surface immediately; if every candidate fails, the last error surfaces.
func Fallback(models []*Model, opts FallbackOptions) ModelMiddleware {
	statuses := opts.Statuses
	if statuses == nil {
		statuses = defaultFallback
	}
	eligible := make(map[types.Status]bool, len(statuses))
	for _, s := range statuses {
		eligible[s] = true
	}

	return func(next ModelFunc) ModelFunc {
		return func(ctx context.Context, req *ModelRequest, cb action.StreamCallback[*ModelResponseChunk]) (*ModelResponse, error) {
			resp, err := next(ctx, req, cb)
			if err == nil {
				return resp, nil
			}
			if !eligibleError(err, eligible) {
				return nil, err
			}

			lastErr := err
			for _, m := range models {
				if opts.OnError != nil {
					opts.OnError(ctx, m.Name(), lastErr)
				}
				resp, err := m.Generate(ctx, req, cb)
				if err == nil {
					return resp, nil
				}
				lastErr = err
				if !eligibleError(err, eligible) {
					return nil, err
				}
			}
			return nil, lastErr
		}
	}
}

func eligibleError(err error, eligible map[types.Status]bool) bool {
	status := types.StatusOf(err)
	if status == types.StatusUnknown {
		return true
	}
	return eligible[status]
}
