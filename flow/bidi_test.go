package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/flowkit/action"
	"github.com/BaSui01/flowkit/registry"
	"github.com/BaSui01/flowkit/types"
)

type echoInit struct {
	Prefix string `json:"prefix"`
}

func defineEcho(r *registry.Registry) *BidiFlow[echoInit, string, string, int] {
	return DefineBidi(r, "echo",
		func(ctx context.Context, init echoInit, in *Incoming[string], send action.StreamCallback[string]) (int, error) {
			n := 0
			for msg, err := range in.All(ctx) {
				if err != nil {
					return n, err
				}
				if err := send(ctx, init.Prefix+msg); err != nil {
					return n, err
				}
				n++
			}
			return n, nil
		})
}

func TestBidiSession(t *testing.T) {
	t.Parallel()

	r := registry.New()
	f := defineEcho(r)

	s, err := f.Start(context.Background(), echoInit{Prefix: "> "})
	require.NoError(t, err)

	require.NoError(t, s.Send("one"))
	require.NoError(t, s.Send("two"))
	s.Close()

	var got []string
	for chunk, err := range s.Stream(context.Background()) {
		require.NoError(t, err)
		got = append(got, chunk)
	}
	assert.Equal(t, []string{"> one", "> two"}, got)

	n, err := s.Output(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestBidiInterleavedExchange(t *testing.T) {
	t.Parallel()

	r := registry.New()
	f := DefineBidi(r, "upper",
		func(ctx context.Context, _ struct{}, in *Incoming[string], send action.StreamCallback[string]) (string, error) {
			for {
				msg, ok, err := in.Recv(ctx)
				if err != nil {
					return "", err
				}
				if !ok {
					return "bye", nil
				}
				if err := send(ctx, strings.ToUpper(msg)); err != nil {
					return "", err
				}
			}
		})

	s, err := f.Start(context.Background(), struct{}{})
	require.NoError(t, err)

	ctx := context.Background()
	next, stop := pull(s.Stream(ctx))
	defer stop()

	// Request/response lockstep across several turns.
	for _, msg := range []string{"ping", "pong"} {
		require.NoError(t, s.Send(msg))
		chunk, err, ok := next()
		require.True(t, ok)
		require.NoError(t, err)
		assert.Equal(t, strings.ToUpper(msg), chunk)
	}

	s.Close()
	out, err := s.Output(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bye", out)
}

// pull adapts an iter.Seq2 into explicit next calls for lockstep tests.
func pull[V any](seq func(yield func(V, error) bool)) (func() (V, error, bool), func()) {
	type item struct {
		v   V
		err error
	}
	items := make(chan item)
	done := make(chan struct{})
	go func() {
		defer close(items)
		seq(func(v V, err error) bool {
			select {
			case items <- item{v, err}:
				return true
			case <-done:
				return false
			}
		})
	}()
	next := func() (V, error, bool) {
		it, ok := <-items
		return it.v, it.err, ok
	}
	stop := func() { close(done) }
	return next, stop
}

func TestBidiSendAfterCloseFails(t *testing.T) {
	t.Parallel()

	r := registry.New()
	f := defineEcho(r)

	s, err := f.Start(context.Background(), echoInit{})
	require.NoError(t, err)
	s.Close()

	err = s.Send("late")
	require.Error(t, err)
	assert.Equal(t, types.StatusFailedPrecondition, types.StatusOf(err))
}
