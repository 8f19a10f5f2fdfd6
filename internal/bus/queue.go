package bus

import (
	"context"
	"sync/atomic"
	"time"

	"tickflow/internal/model"
	"tickflow/pkg/exception"
)

// Queue is a bounded event queue feeding one subscriber worker.
// Publishing never reorders: events drain in submission order.
type Queue struct {
	ch     chan model.Event
	closed uint32
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan model.Event, capacity)}
}

// TryPublish enqueues an event without blocking. A full queue returns
// ErrQueueFull and the event is not enqueued.
func (q *Queue) TryPublish(e model.Event) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return exception.ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	default:
		return exception.ErrQueueFull
	}
}

// Publish enqueues an event, blocking up to timeout when the queue is
// full. A zero timeout degrades to TryPublish.
func (q *Queue) Publish(e model.Event, timeout time.Duration) error {
	if timeout <= 0 {
		return q.TryPublish(e)
	}
	if atomic.LoadUint32(&q.closed) != 0 {
		return exception.ErrQueueClosed
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case q.ch <- e:
		return nil
	case <-t.C:
		return exception.ErrQueueFull
	}
}

// Close stops the queue from accepting new events. Events already
// enqueued remain drainable.
func (q *Queue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.ch)
	}
}

// Run consumes events until the context is done or the queue is
// closed and drained.
func (q *Queue) Run(ctx context.Context, handler func(model.Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-q.ch:
			if !ok {
				return
			}
			handler(e)
		}
	}
}

// Drain consumes any remaining events without waiting for new ones.
func (q *Queue) Drain(handler func(model.Event)) {
	for {
		select {
		case e, ok := <-q.ch:
			if !ok {
				return
			}
			handler(e)
		default:
			return
		}
	}
}
