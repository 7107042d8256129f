package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnboundedOrdering(t *testing.T) {
	t.Parallel()

	q := NewUnbounded[int]()
	for i := 0; i < 100; i++ {
		require.True(t, q.Push(i))
	}
	q.Close(nil)

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		v, ok, err := q.Pop(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, i, v)
	}

	_, ok, err := q.Pop(ctx)
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestUnboundedPushNeverBlocks(t *testing.T) {
	t.Parallel()

	q := NewUnbounded[int]()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10000; i++ {
			q.Push(i)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer blocked without a consumer")
	}
}

func TestUnboundedPopBlocksUntilPush(t *testing.T) {
	t.Parallel()

	q := NewUnbounded[string]()
	got := make(chan string, 1)
	go func() {
		v, ok, err := q.Pop(context.Background())
		if err == nil && ok {
			got <- v
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push("hello")

	select {
	case v := <-got:
		assert.Equal(t, "hello", v)
	case <-time.After(5 * time.Second):
		t.Fatal("Pop never woke up")
	}
}

func TestUnboundedCloseWithError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("upstream failed")
	q := NewUnbounded[int]()
	q.Push(1)
	q.Close(sentinel)

	// Buffered items drain before the terminal error surfaces.
	v, ok, err := q.Pop(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok, err = q.Pop(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, sentinel)

	assert.False(t, q.Push(2), "push after close must be rejected")
}

func TestUnboundedPopHonorsContext(t *testing.T) {
	t.Parallel()

	q := NewUnbounded[int]()
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, _, err := q.Pop(ctx)
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Pop ignored context cancellation")
	}
}

func TestUnboundedConcurrentProducersConsumers(t *testing.T) {
	t.Parallel()

	const producers, perProducer = 8, 500
	q := NewUnbounded[int]()

	var produce sync.WaitGroup
	for p := 0; p < producers; p++ {
		produce.Add(1)
		go func() {
			defer produce.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(i)
			}
		}()
	}
	go func() {
		produce.Wait()
		q.Close(nil)
	}()

	var consume sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for c := 0; c < 4; c++ {
		consume.Add(1)
		go func() {
			defer consume.Done()
			for {
				_, ok, err := q.Pop(context.Background())
				if err != nil || !ok {
					return
				}
				mu.Lock()
				total++
				mu.Unlock()
			}
		}()
	}
	consume.Wait()

	assert.Equal(t, producers*perProducer, total)
}
