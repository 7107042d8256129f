package flow

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/flowkit/action"
	"github.com/BaSui01/flowkit/registry"
	"github.com/BaSui01/flowkit/types"
)

func TestWireRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewEventWriter(&buf)
	require.NoError(t, w.WriteChunk(map[string]any{"n": 1}))
	require.NoError(t, w.WriteChunk(map[string]any{"n": 2}))
	require.NoError(t, w.WriteResult("done"))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.JSONEq(t, `{"message":{"n":1}}`, lines[0])
	assert.JSONEq(t, `{"result":"done"}`, lines[2])

	r := NewEventReader(&buf)
	ev, err := r.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(ev.Message))

	ev, err = r.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":2}`, string(ev.Message))

	ev, err = r.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `"done"`, string(ev.Result))

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWireError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewEventWriter(&buf)
	src := types.NewError(types.StatusResourceExhausted, "quota exceeded").
		WithDetails(map[string]any{"limit": 100.0})
	require.NoError(t, w.WriteError(src))

	r := NewEventReader(&buf)
	ev, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, ev.Error)
	assert.Equal(t, types.StatusResourceExhausted, ev.Error.Status)
	assert.Equal(t, "quota exceeded", ev.Error.Message)
	assert.Equal(t, 100.0, ev.Error.Details["limit"])

	back := ev.Error.Err()
	assert.Equal(t, types.StatusResourceExhausted, types.StatusOf(back))
}

func TestWireErrorUnclassifiedBecomesInternal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewEventWriter(&buf)
	require.NoError(t, w.WriteError(io.ErrUnexpectedEOF))

	r := NewEventReader(&buf)
	ev, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, ev.Error)
	assert.Equal(t, types.StatusInternal, ev.Error.Status)
}

func TestWireReaderSkipsBlankLines(t *testing.T) {
	t.Parallel()

	r := NewEventReader(strings.NewReader("\n{\"result\":1}\n\n"))
	ev, err := r.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `1`, string(ev.Result))
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestCopyStream(t *testing.T) {
	t.Parallel()

	r := registry.New()
	f := Define(r, "emit", func(ctx context.Context, n int, cb action.StreamCallback[int]) (string, error) {
		for i := 0; i < n; i++ {
			if err := cb(ctx, i); err != nil {
				return "", err
			}
		}
		return "end", nil
	})

	var buf bytes.Buffer
	resp := f.Stream(context.Background(), 2)
	require.NoError(t, CopyStream(context.Background(), resp, NewEventWriter(&buf)))

	er := NewEventReader(&buf)
	ev, err := er.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `0`, string(ev.Message))
	ev, err = er.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `1`, string(ev.Message))
	ev, err = er.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `"end"`, string(ev.Result))
}

func TestCopyStreamWritesTerminalError(t *testing.T) {
	t.Parallel()

	r := registry.New()
	f := Define(r, "doomed", func(ctx context.Context, _ struct{}, cb action.StreamCallback[int]) (string, error) {
		return "", types.NewError(types.StatusUnavailable, "backend down")
	})

	var buf bytes.Buffer
	resp := f.Stream(context.Background(), struct{}{})
	require.NoError(t, CopyStream(context.Background(), resp, NewEventWriter(&buf)))

	er := NewEventReader(&buf)
	ev, err := er.Next()
	require.NoError(t, err)
	require.NotNil(t, ev.Error)
	assert.Equal(t, types.StatusUnavailable, ev.Error.Status)
	assert.Equal(t, "backend down", ev.Error.Message)
}
