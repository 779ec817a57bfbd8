// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package vecq

import (
	"errors"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
)

// SyncQueue wraps Queue with goroutine-blocking enqueue and dequeue.
//
// Producers blocked on a full buffer and the consumer blocked on an empty
// queue share one condition variable. Producers signal the consumer only
// when it has announced it is waiting (waitDequeue), so a consumer that
// keeps up with the producers never causes broadcasts.
//
// The whole non-blocking surface of Queue is available unchanged.
type SyncQueue[T Payload] struct {
	queue Queue[T]
	mu    sync.Mutex
	cond  sync.Cond
	// waitDequeue is 1 while the consumer may be parked; the first
	// producer to observe it swaps it to 0 and broadcasts.
	waitDequeue atomix.Uint64
}

// NewSync creates a blocking queue with capacity 0.
func NewSync[T Payload]() *SyncQueue[T] {
	return NewSyncWithCapacity[T](0)
}

// NewSyncWithCapacity creates a blocking queue whose two buffers hold
// capacity payloads each.
func NewSyncWithCapacity[T Payload](capacity int) *SyncQueue[T] {
	q := &SyncQueue[T]{}
	q.queue.init(capacity)
	q.cond.L = &q.mu
	q.waitDequeue.StoreRelaxed(1)
	return q
}

// Capacity returns the active buffer's capacity.
func (q *SyncQueue[T]) Capacity() int { return q.queue.Capacity() }

// SetCapacity raises the capacity target used at the next rotation.
func (q *SyncQueue[T]) SetCapacity(capacity int) { q.queue.SetCapacity(capacity) }

// Len returns the approximate number of queued payloads.
func (q *SyncQueue[T]) Len() int { return q.queue.Len() }

// IsEmpty reports whether Len() == 0.
func (q *SyncQueue[T]) IsEmpty() bool { return q.queue.IsEmpty() }

// Close sets the closed bit and wakes every blocked producer and the
// consumer so they can observe ErrClosed.
func (q *SyncQueue[T]) Close() {
	q.queue.Close()
	q.cond.Broadcast()
}

// IsClosed reports whether the closed bit is set.
func (q *SyncQueue[T]) IsClosed() bool { return q.queue.IsClosed() }

// Reopen clears the closed bit, restoring enqueue.
func (q *SyncQueue[T]) Reopen() { q.queue.Reopen() }

// wakeDequeue signals the consumer after a successful enqueue, but only
// when it announced a wait; steady drain stays broadcast-free.
func (q *SyncQueue[T]) wakeDequeue() {
	if q.waitDequeue.CompareAndSwapRelaxed(1, 0) {
		q.cond.Broadcast()
	}
}

// TryEnqueue adds elem without blocking; see Queue.TryEnqueue.
func (q *SyncQueue[T]) TryEnqueue(elem T) error {
	if err := q.queue.TryEnqueue(elem); err != nil {
		return err
	}
	q.wakeDequeue()
	return nil
}

// EnqueueUnbounded adds elem, spilling to overflow when the active buffer
// is full; see Queue.EnqueueUnbounded.
func (q *SyncQueue[T]) EnqueueUnbounded(elem T) error {
	if err := q.queue.EnqueueUnbounded(elem); err != nil {
		return err
	}
	q.wakeDequeue()
	return nil
}

func (q *SyncQueue[T]) enqueueWait(elem T, timeout time.Duration, timed bool) error {
	err := q.TryEnqueue(elem)
	if !errors.Is(err, ErrWouldBlock) {
		return err
	}
	var deadline time.Time
	if timed {
		deadline = time.Now().Add(timeout)
		timer := time.AfterFunc(timeout, q.cond.Broadcast)
		defer timer.Stop()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		err = q.TryEnqueue(elem)
		if !errors.Is(err, ErrWouldBlock) {
			return err
		}
		if timed && !time.Now().Before(deadline) {
			return ErrWouldBlock
		}
		q.cond.Wait()
	}
}

// Enqueue adds elem, blocking while the active buffer is full. Returns
// nil on success or ErrClosed; the caller keeps elem on failure.
func (q *SyncQueue[T]) Enqueue(elem T) error {
	return q.enqueueWait(elem, 0, false)
}

// TryEnqueueTimeout is Enqueue with a deadline. The timeout surfaces as
// ErrWouldBlock, the same result an immediate full buffer would give.
func (q *SyncQueue[T]) TryEnqueueTimeout(elem T, timeout time.Duration) error {
	return q.enqueueWait(elem, timeout, true)
}

// TryDequeue removes all queued payloads as one batch without blocking;
// see Queue.TryDequeue. A successful dequeue frees a whole buffer for
// producers, so blocked producers are woken.
func (q *SyncQueue[T]) TryDequeue() (*Vectored[T], error) {
	v, err := q.queue.TryDequeue()
	if err != nil {
		return nil, err
	}
	q.cond.Broadcast()
	return v, nil
}

func (q *SyncQueue[T]) dequeueWait(timeout time.Duration, timed bool) (*Vectored[T], error) {
	var deadline time.Time
	if timed {
		deadline = time.Now().Add(timeout)
		timer := time.AfterFunc(timeout, q.cond.Broadcast)
		defer timer.Stop()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		q.waitDequeue.StoreRelaxed(1)
		v, err := q.TryDequeue()
		if err == nil {
			return v, nil
		}
		if !IsNonFailure(err) {
			// ErrClosed or ErrConflict.
			return nil, err
		}
		if timed && !time.Now().Before(deadline) {
			return nil, ErrWouldBlock
		}
		q.cond.Wait()
	}
}

// Dequeue removes all queued payloads as one batch, blocking while the
// queue is empty. Returns ErrClosed once the queue is closed and drained,
// or ErrConflict if another consumer holds an unreleased batch.
func (q *SyncQueue[T]) Dequeue() (*Vectored[T], error) {
	return q.dequeueWait(0, false)
}

// TryDequeueTimeout is Dequeue with a deadline. The timeout surfaces as
// ErrWouldBlock, the same result an immediately empty queue would give;
// a dequeue parked as pending resumes on the next call.
func (q *SyncQueue[T]) TryDequeueTimeout(timeout time.Duration) (*Vectored[T], error) {
	return q.dequeueWait(timeout, true)
}
