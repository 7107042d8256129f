package generate

import (
	"context"
	"math/rand"
	"time"

	"github.com/BaSui01/flowkit/action"
	"github.com/BaSui01/flowkit/types"
)

// defaultRetryable are the statuses presumed transient. Unclassified errors
// are also retried: an error with no status is indistinguishable from a
// transport failure.
var defaultRetryable = []types.Status{
	types.StatusUnavailable,
	types.StatusDeadlineExceeded,
	types.StatusResourceExhausted,
	types.StatusAborted,
	types.StatusInternal,
}

// RetryOptions configures the Retry middleware. Zero values take defaults:
// 3 retries, 100ms initial delay doubling up to 30s.
type RetryOptions struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffFactor     float64
	Jitter            bool
	RetryableStatuses []types.Status
	// OnError observes each failed attempt that will be retried.
	OnError func(ctx context.Context, attempt int, err error)
}

func (o *RetryOptions) withDefaults() {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 100 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.BackoffFactor <= 1 {
		o.BackoffFactor = 2
	}
	if o.RetryableStatuses == nil {
		o.RetryableStatuses = defaultRetryable
	}
}

// Retry returns model middleware that re-invokes the model on transient
// failures with exponential backoff. Non-retryable statuses surface
// immediately.
func Retry(opts RetryOptions) ModelMiddleware {
	opts.withDefaults()
	retryable := make(map[types.Status]bool, len(opts.RetryableStatuses))
	for _, s := range opts.RetryableStatuses {
		retryable[s] = true
	}

	return func(next ModelFunc) ModelFunc {
		return func(ctx context.Context, req *ModelRequest, cb action.StreamCallback[*ModelResponseChunk]) (*ModelResponse, error) {
			delay := opts.InitialDelay
			var lastErr error
			for attempt := 1; ; attempt++ {
				resp, err := next(ctx, req, cb)
				if err == nil {
					return resp, nil
				}
				lastErr = err

				if !isRetryable(err, retryable) {
					return nil, err
				}
				if attempt > opts.MaxRetries {
					break
				}
				if opts.OnError != nil {
					opts.OnError(ctx, attempt, err)
				}
				if err := sleep(ctx, jittered(delay, opts.Jitter)); err != nil {
					return nil, err
				}
				delay = nextDelay(delay, opts)
			}
			return nil, lastErr
		}
	}
}

func isRetryable(err error, retryable map[types.Status]bool) bool {
	status := types.StatusOf(err)
	if status == types.StatusUnknown {
		return true
	}
	return retryable[status]
}

func nextDelay(delay time.Duration, opts RetryOptions) time.Duration {
	next := time.Duration(float64(delay) * opts.BackoffFactor)
	if next > opts.MaxDelay {
		return opts.MaxDelay
	}
	return next
}

func jittered(delay time.Duration, jitter bool) time.Duration {
	if !jitter {
		return delay
	}
	// Up to +-25%.
	span := float64(delay) / 2
	return delay - time.Duration(span/2) + time.Duration(rand.Float64()*span)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
