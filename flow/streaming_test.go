package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/flowkit/action"
	"github.com/BaSui01/flowkit/registry"
	"github.com/BaSui01/flowkit/types"
)

func defineCountdown(r *registry.Registry) *Flow[int, string, int] {
	return Define(r, "countdown", func(ctx context.Context, n int, cb action.StreamCallback[int]) (string, error) {
		for i := n; i > 0; i-- {
			if cb != nil {
				if err := cb(ctx, i); err != nil {
					return "", err
				}
			}
		}
		return "liftoff", nil
	})
}

func TestStreamDeliversChunksInOrder(t *testing.T) {
	t.Parallel()

	r := registry.New()
	f := defineCountdown(r)

	resp := f.Stream(context.Background(), 3)

	var chunks []int
	for chunk, err := range resp.Stream(context.Background()) {
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}
	assert.Equal(t, []int{3, 2, 1}, chunks)

	out, err := resp.Output(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "liftoff", out)
}

func TestStreamOutputWithoutDraining(t *testing.T) {
	t.Parallel()

	r := registry.New()
	f := defineCountdown(r)

	// The producer must not block on an unread stream.
	resp := f.Stream(context.Background(), 1000)
	out, err := resp.Output(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "liftoff", out)

	// Chunks remain buffered and readable after completion.
	n := 0
	for _, err := range resp.Stream(context.Background()) {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 1000, n)
}

func TestStreamSurfacesError(t *testing.T) {
	t.Parallel()

	r := registry.New()
	f := Define(r, "half", func(ctx context.Context, n int, cb action.StreamCallback[int]) (string, error) {
		for i := 0; i < n/2; i++ {
			if err := cb(ctx, i); err != nil {
				return "", err
			}
		}
		return "", types.NewError(types.StatusInternal, "gave up halfway")
	})

	resp := f.Stream(context.Background(), 4)

	var chunks []int
	var streamErr error
	for chunk, err := range resp.Stream(context.Background()) {
		if err != nil {
			streamErr = err
			break
		}
		chunks = append(chunks, chunk)
	}
	assert.Equal(t, []int{0, 1}, chunks)
	require.Error(t, streamErr)
	assert.Equal(t, types.StatusInternal, types.StatusOf(streamErr))

	_, err := resp.Output(context.Background())
	assert.Equal(t, types.StatusInternal, types.StatusOf(err))
}

func TestStreamWithSteps(t *testing.T) {
	t.Parallel()

	r := registry.New()
	f := Define(r, "stepped", func(ctx context.Context, _ struct{}, cb action.StreamCallback[string]) (int, error) {
		total := 0
		for _, word := range []string{"a", "bb", "ccc"} {
			n, err := Run(ctx, "measure", func(ctx context.Context) (int, error) {
				if cb != nil {
					if err := cb(ctx, word); err != nil {
						return 0, err
					}
				}
				return len(word), nil
			})
			if err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil
	})

	resp := f.Stream(context.Background(), struct{}{})

	var words []string
	for chunk, err := range resp.Stream(context.Background()) {
		require.NoError(t, err)
		words = append(words, chunk)
	}
	assert.Equal(t, []string{"a", "bb", "ccc"}, words)

	out, err := resp.Output(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, out)
}
