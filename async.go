// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package vecq

import (
	"context"
	"sync"
)

// AsyncQueue wraps Queue with context-aware, goroutine-suspending enqueue
// and dequeue.
//
// The consumer side parks on a one-slot wake channel: producers do a
// non-blocking send after every successful enqueue, so a wake posted
// between the consumer's poll and its wait is never lost. The producer
// side parks on a broadcast channel that the consumer closes after every
// successful dequeue and Close; waiters re-arm before each poll, so a
// notification between poll and wait is never lost either.
//
// Cancellation is safe on both sides: a canceled Enqueue returns ctx.Err()
// and the caller keeps the element; a canceled Dequeue mutates no state.
//
// The whole non-blocking surface of Queue is available unchanged.
type AsyncQueue[T Payload] struct {
	queue Queue[T]
	wake  chan struct{}

	notifyMu sync.Mutex
	notify   chan struct{}
}

// NewAsync creates a context-aware queue with capacity 0.
func NewAsync[T Payload]() *AsyncQueue[T] {
	return NewAsyncWithCapacity[T](0)
}

// NewAsyncWithCapacity creates a context-aware queue whose two buffers
// hold capacity payloads each.
func NewAsyncWithCapacity[T Payload](capacity int) *AsyncQueue[T] {
	q := &AsyncQueue[T]{
		wake:   make(chan struct{}, 1),
		notify: make(chan struct{}),
	}
	q.queue.init(capacity)
	return q
}

// Capacity returns the active buffer's capacity.
func (q *AsyncQueue[T]) Capacity() int { return q.queue.Capacity() }

// SetCapacity raises the capacity target used at the next rotation.
func (q *AsyncQueue[T]) SetCapacity(capacity int) { q.queue.SetCapacity(capacity) }

// Len returns the approximate number of queued payloads.
func (q *AsyncQueue[T]) Len() int { return q.queue.Len() }

// IsEmpty reports whether Len() == 0.
func (q *AsyncQueue[T]) IsEmpty() bool { return q.queue.IsEmpty() }

// Close sets the closed bit and wakes all suspended producers and the
// consumer so they can observe ErrClosed.
func (q *AsyncQueue[T]) Close() {
	q.queue.Close()
	q.notifyProducers()
	q.wakeDequeue()
}

// IsClosed reports whether the closed bit is set.
func (q *AsyncQueue[T]) IsClosed() bool { return q.queue.IsClosed() }

// Reopen clears the closed bit, restoring enqueue.
func (q *AsyncQueue[T]) Reopen() { q.queue.Reopen() }

// armed returns the channel a producer must select on if its next try
// fails. Taking the channel before the try closes the notify/try race.
func (q *AsyncQueue[T]) armed() <-chan struct{} {
	q.notifyMu.Lock()
	ch := q.notify
	q.notifyMu.Unlock()
	return ch
}

// notifyProducers releases every armed producer and re-arms.
func (q *AsyncQueue[T]) notifyProducers() {
	q.notifyMu.Lock()
	close(q.notify)
	q.notify = make(chan struct{})
	q.notifyMu.Unlock()
}

// wakeDequeue posts a level-triggered wake for the single consumer.
func (q *AsyncQueue[T]) wakeDequeue() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// TryEnqueue adds elem without suspending; see Queue.TryEnqueue.
func (q *AsyncQueue[T]) TryEnqueue(elem T) error {
	if err := q.queue.TryEnqueue(elem); err != nil {
		return err
	}
	q.wakeDequeue()
	return nil
}

// EnqueueUnbounded adds elem, spilling to overflow when the active buffer
// is full; see Queue.EnqueueUnbounded.
func (q *AsyncQueue[T]) EnqueueUnbounded(elem T) error {
	if err := q.queue.EnqueueUnbounded(elem); err != nil {
		return err
	}
	q.wakeDequeue()
	return nil
}

// Enqueue adds elem, suspending the calling goroutine while the active
// buffer is full. Returns nil on success, ErrClosed when the queue is
// closed, or ctx.Err() on cancellation; the caller keeps elem on failure.
func (q *AsyncQueue[T]) Enqueue(ctx context.Context, elem T) error {
	for {
		armed := q.armed()
		err := q.TryEnqueue(elem)
		if !IsWouldBlock(err) {
			return err
		}
		select {
		case <-armed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// TryDequeue removes all queued payloads as one batch without suspending;
// see Queue.TryDequeue. A successful dequeue frees a whole buffer for
// producers, so suspended producers are notified.
func (q *AsyncQueue[T]) TryDequeue() (*Vectored[T], error) {
	v, err := q.queue.TryDequeue()
	if err != nil {
		return nil, err
	}
	q.notifyProducers()
	return v, nil
}

// Dequeue removes all queued payloads as one batch, suspending the
// calling goroutine while the queue is empty. Returns ErrClosed once the
// queue is closed and drained, ErrConflict if another consumer holds an
// unreleased batch, or ctx.Err() on cancellation.
func (q *AsyncQueue[T]) Dequeue(ctx context.Context) (*Vectored[T], error) {
	for {
		v, err := q.TryDequeue()
		if err == nil {
			return v, nil
		}
		if !IsNonFailure(err) {
			// ErrClosed or ErrConflict.
			return nil, err
		}
		select {
		case <-q.wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
