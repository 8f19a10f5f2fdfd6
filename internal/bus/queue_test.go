package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickflow/internal/model"
	"tickflow/pkg/exception"
)

func event(token model.Token) model.Event {
	return model.Event{Token: token}
}

func TestTryPublishFullQueue(t *testing.T) {
	q := NewQueue(2)

	require.NoError(t, q.TryPublish(event("a")))
	require.NoError(t, q.TryPublish(event("b")))
	assert.Equal(t, exception.ErrQueueFull, q.TryPublish(event("c")))
}

func TestPublishBlocksUntilTimeout(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.TryPublish(event("a")))

	start := time.Now()
	err := q.Publish(event("b"), 20*time.Millisecond)
	assert.Equal(t, exception.ErrQueueFull, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPublishZeroTimeoutDoesNotBlock(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Publish(event("a"), 0))
	assert.Equal(t, exception.ErrQueueFull, q.Publish(event("b"), 0))
}

func TestCloseRejectsNewKeepsQueued(t *testing.T) {
	q := NewQueue(4)
	require.NoError(t, q.TryPublish(event("a")))
	require.NoError(t, q.TryPublish(event("b")))

	q.Close()
	assert.Equal(t, exception.ErrQueueClosed, q.TryPublish(event("c")))

	var drained []model.Token
	q.Drain(func(e model.Event) { drained = append(drained, e.Token) })
	assert.Equal(t, []model.Token{"a", "b"}, drained)
}

func TestCloseIsIdempotent(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	q.Close()
}

func TestRunPreservesOrder(t *testing.T) {
	q := NewQueue(8)
	for _, token := range []model.Token{"1", "2", "3"} {
		require.NoError(t, q.TryPublish(event(token)))
	}
	q.Close()

	var seen []model.Token
	q.Run(context.Background(), func(e model.Event) { seen = append(seen, e.Token) })
	assert.Equal(t, []model.Token{"1", "2", "3"}, seen)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		q.Run(ctx, func(model.Event) {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on canceled context")
	}
}
