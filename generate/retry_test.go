package generate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/flowkit/action"
	"github.com/BaSui01/flowkit/registry"
	"github.com/BaSui01/flowkit/types"
)

func flakyModel(r *registry.Registry, name string, failures int, status types.Status) (*Model, *atomic.Int32) {
	var calls atomic.Int32
	m := DefineModel(r, name, func(ctx context.Context, req *ModelRequest, cb action.StreamCallback[*ModelResponseChunk]) (*ModelResponse, error) {
		if int(calls.Add(1)) <= failures {
			return nil, types.NewError(status, "transient failure")
		}
		msg := types.NewAssistantMessage("recovered")
		return &ModelResponse{Message: &msg, FinishReason: FinishReasonStop}, nil
	})
	return m, &calls
}

func fastRetry(onError func(ctx context.Context, attempt int, err error)) ModelMiddleware {
	return Retry(RetryOptions{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		OnError:      onError,
	})
}

func TestRetryRecoversFromTransientFailures(t *testing.T) {
	t.Parallel()

	r := registry.New()
	m, calls := flakyModel(r, "flaky", 2, types.StatusUnavailable)

	var onErrors atomic.Int32
	resp, err := Generate(context.Background(), r,
		WithModel(m), WithPrompt("go"),
		WithMiddleware(fastRetry(func(ctx context.Context, attempt int, err error) {
			onErrors.Add(1)
			assert.Equal(t, types.StatusUnavailable, types.StatusOf(err))
		})))
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Message.Content)
	assert.Equal(t, int32(3), calls.Load(), "two failures and one success")
	assert.Equal(t, int32(2), onErrors.Load())
}

func TestRetryExhaustsAndSurfacesLastError(t *testing.T) {
	t.Parallel()

	r := registry.New()
	m, calls := flakyModel(r, "hopeless", 100, types.StatusUnavailable)

	_, err := Generate(context.Background(), r,
		WithModel(m), WithPrompt("go"),
		WithMiddleware(fastRetry(nil)))
	require.Error(t, err)
	assert.Equal(t, types.StatusUnavailable, types.StatusOf(err))
	assert.Equal(t, int32(4), calls.Load(), "initial attempt plus three retries")
}

func TestRetryDoesNotRetryCallerErrors(t *testing.T) {
	t.Parallel()

	r := registry.New()
	m, calls := flakyModel(r, "picky", 100, types.StatusInvalidArgument)

	var onErrors atomic.Int32
	_, err := Generate(context.Background(), r,
		WithModel(m), WithPrompt("go"),
		WithMiddleware(fastRetry(func(ctx context.Context, attempt int, err error) {
			onErrors.Add(1)
		})))
	require.Error(t, err)
	assert.Equal(t, types.StatusInvalidArgument, types.StatusOf(err))
	assert.Equal(t, int32(1), calls.Load(), "caller errors fail fast")
	assert.Zero(t, onErrors.Load())
}

func TestRetryTreatsUnclassifiedAsTransient(t *testing.T) {
	t.Parallel()

	r := registry.New()
	var calls atomic.Int32
	m := DefineModel(r, "plain-errors", func(ctx context.Context, req *ModelRequest, cb action.StreamCallback[*ModelResponseChunk]) (*ModelResponse, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("connection reset")
		}
		msg := types.NewAssistantMessage("ok")
		return &ModelResponse{Message: &msg, FinishReason: FinishReasonStop}, nil
	})

	resp, err := Generate(context.Background(), r,
		WithModel(m), WithPrompt("go"),
		WithMiddleware(fastRetry(nil)))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Message.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetryHonorsContextDuringBackoff(t *testing.T) {
	t.Parallel()

	r := registry.New()
	m, _ := flakyModel(r, "slow", 100, types.StatusUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Generate(ctx, r,
		WithModel(m), WithPrompt("go"),
		WithMiddleware(Retry(RetryOptions{MaxRetries: 3, InitialDelay: time.Hour})))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
