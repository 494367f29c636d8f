package bus

import (
	"context"
	"sync/atomic"

	"main/internal/model"
	"main/pkg/exception"
)

// Queue is a bounded, non-blocking envelope queue. Sinks drain it on their
// own goroutine so slow I/O never blocks channel dispatch.
type Queue struct {
	ch     chan model.Envelope
	done   chan struct{}
	closed uint32
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		ch:   make(chan model.Envelope, capacity),
		done: make(chan struct{}),
	}
}

// TryPublish enqueues an envelope without blocking. Publishing and Close may
// race freely; the data channel is never closed, so a publish that slips past
// the closed flag lands in the buffer and is drained or discarded.
func (q *Queue) TryPublish(ev model.Envelope) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return exception.ErrQueueClosed
	}
	select {
	case q.ch <- ev:
		return nil
	default:
		return exception.ErrQueueFull
	}
}

// Close stops the queue from accepting new envelopes.
func (q *Queue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.done)
	}
}

// Run consumes envelopes until the context is done or the queue is closed.
// On close it drains whatever was accepted first.
func (q *Queue) Run(ctx context.Context, handler func(model.Envelope)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-q.ch:
			handler(ev)
		case <-q.done:
			for {
				select {
				case ev := <-q.ch:
					handler(ev)
				default:
					return
				}
			}
		}
	}
}
