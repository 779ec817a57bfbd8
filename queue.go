// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package vecq

import (
	"errors"
	"sync"

	"code.hybscloud.com/atomix"
)

// closedFlag is the sticky closed bit in bufferRemain.
const closedFlag = ^uint64(0)>>1 + 1

// dequeueHeld is the pendingDequeue sentinel: a consumer holds the ticket.
const dequeueHeld = ^uint64(0)

// Queue is a lock-free multi-producer single-consumer batching queue.
//
// Producers enqueue individually owned byte payloads; the single consumer
// dequeues everything currently queued at once, as one contiguous
// scatter/gather slice array suitable for a vectored write.
//
// Two equal-capacity buffers sit back to back: producers fill the active
// one while the consumer drains the other. All producer/consumer
// coordination runs through two packed atomic words:
//
//	bufferRemain   [closed:1 | remaining slots:62 | active index:1]
//	pendingDequeue [batch length:63 | drain index:1], all-ones = held
//
// A producer reserves a slot by decrementing the remaining-slots field in
// one CAS, which simultaneously pins the buffer identity and checks
// closure. The consumer flips the active index in one CAS (rotation) and
// takes the previously active buffer as a batch.
//
// Thread safety: any number of producer goroutines, exactly one logical
// consumer at a time. A second concurrent consumer gets ErrConflict.
type Queue[T Payload] struct {
	_              pad
	bufferRemain   atomix.Uint64
	_              padShort
	pendingDequeue atomix.Uint64
	_              padShort
	capacity       atomix.Uint64
	_              padShort
	buffers        [2]buffer[T]
	overflowMu     sync.Mutex
	overflow       []T
}

// New creates a queue with capacity 0.
//
// A zero-capacity queue rejects TryEnqueue with ErrWouldBlock until
// EnqueueUnbounded grows it. SetCapacity alone does not: a dequeue on a
// queue with nothing reserved returns without rotating, so the raised
// target is never applied.
func New[T Payload]() *Queue[T] {
	return NewWithCapacity[T](0)
}

// NewWithCapacity creates a queue whose two buffers hold capacity payloads
// each. Panics if capacity is negative or does not fit the packed word.
func NewWithCapacity[T Payload](capacity int) *Queue[T] {
	q := &Queue[T]{}
	q.init(capacity)
	return q
}

// init prepares a zeroed queue in place. The adapters embed Queue by value
// and initialize it through here.
func (q *Queue[T]) init(capacity int) {
	if capacity < 0 || uint64(capacity) >= closedFlag>>1 {
		panic("vecq: invalid capacity")
	}
	q.bufferRemain.StoreRelaxed(uint64(capacity) << 1)
	q.capacity.StoreRelaxed(uint64(capacity))
	q.buffers[0].resize(uint64(capacity))
	q.buffers[1].resize(uint64(capacity))
}

// currentBuffer is the buffer producers are filling right now.
func (q *Queue[T]) currentBuffer() *buffer[T] {
	return &q.buffers[q.bufferRemain.LoadRelaxed()&1]
}

// Capacity returns the active buffer's capacity.
func (q *Queue[T]) Capacity() int {
	return int(q.currentBuffer().capacity())
}

// SetCapacity raises the capacity target used when a buffer is grown
// during rotation. It never decreases the target and does not resize the
// buffers immediately; the next rotation picks it up.
func (q *Queue[T]) SetCapacity(capacity int) {
	q.setCapacity(uint64(capacity))
}

func (q *Queue[T]) setCapacity(capacity uint64) {
	current := q.capacity.LoadRelaxed()
	for capacity > current {
		if q.capacity.CompareAndSwapRelaxed(current, capacity) {
			return
		}
		current = q.capacity.LoadRelaxed()
	}
}

// Len returns the number of queued payloads: the active buffer's published
// count plus the overflow list. The count is approximate and may
// transiently underreport during a rotation.
func (q *Queue[T]) Len() int {
	q.overflowMu.Lock()
	spill := len(q.overflow)
	q.overflowMu.Unlock()
	return int(q.currentBuffer().length()) + spill
}

// IsEmpty reports whether Len() == 0.
func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}

// Close sets the sticky closed bit. Producers get ErrClosed from then on;
// the consumer can still drain queued batches and then gets ErrClosed.
// Close does not mutate the buffers.
func (q *Queue[T]) Close() {
	for {
		remain := q.bufferRemain.LoadRelaxed()
		if remain&closedFlag != 0 {
			return
		}
		if q.bufferRemain.CompareAndSwapRelaxed(remain, remain|closedFlag) {
			return
		}
	}
}

// Reopen clears the closed bit, restoring enqueue.
func (q *Queue[T]) Reopen() {
	for {
		remain := q.bufferRemain.LoadRelaxed()
		if remain&closedFlag == 0 {
			return
		}
		if q.bufferRemain.CompareAndSwapRelaxed(remain, remain&^closedFlag) {
			return
		}
	}
}

// IsClosed reports whether the closed bit is set.
func (q *Queue[T]) IsClosed() bool {
	return q.bufferRemain.LoadRelaxed()&closedFlag != 0
}

// TryEnqueue adds elem to the active buffer (non-blocking, multiple
// producers safe).
//
// Returns ErrWouldBlock when the active buffer has no remaining slots and
// ErrClosed when the queue is closed; in both cases the caller keeps elem.
//
// The winning CAS decrements the remaining-slots field by one (a step of
// two in the packed word) while preserving the active index and closed
// bit, so reservation, buffer selection and the closure check are one
// atomic snapshot.
func (q *Queue[T]) TryEnqueue(elem T) error {
	remain := q.bufferRemain.LoadRelaxed()
	for {
		if remain&closedFlag != 0 {
			return ErrClosed
		}
		if remain>>1 == 0 {
			return ErrWouldBlock
		}
		if q.bufferRemain.CompareAndSwapAcqRel(remain, remain-2) {
			q.buffers[remain&1].insert(remain>>1, elem)
			return nil
		}
		remain = q.bufferRemain.LoadRelaxed()
	}
}

// EnqueueUnbounded adds elem, spilling into the mutex-guarded overflow
// list when the active buffer is full. The overflow is drained into the
// next buffer at rotation time, ahead of new reservations. Returns
// ErrClosed when the queue is closed; the caller keeps elem.
//
// A zero-capacity queue is bootstrapped to capacity 1 on first use; later
// rotations keep growing toward demand.
func (q *Queue[T]) EnqueueUnbounded(elem T) error {
	err := q.TryEnqueue(elem)
	if !errors.Is(err, ErrWouldBlock) {
		return err
	}
	q.overflowMu.Lock()
	if q.Capacity() == 0 {
		q.setCapacity(1)
		q.buffers[0].resize(1)
		q.buffers[1].resize(1)
		q.bufferRemain.StoreRelease(1 << 1)
		q.overflowMu.Unlock()
		return q.EnqueueUnbounded(elem)
	}
	err = q.TryEnqueue(elem)
	if errors.Is(err, ErrWouldBlock) {
		q.overflow = append(q.overflow, elem)
		err = nil
	}
	q.overflowMu.Unlock()
	return err
}

// TryDequeue removes all currently queued payloads as one batch
// (non-blocking, single consumer).
//
// On success it rotates the double buffer, so producers immediately start
// filling the other side, and returns the drained buffer as a Vectored
// batch. The caller must call Release on the batch; the queue refuses
// further dequeues with ErrConflict until then.
//
// Returns ErrWouldBlock when empty, ErrClosed when closed and drained,
// ErrPending when a producer reserved a slot but has not finished writing
// it (the dequeue state is parked; call again), and ErrConflict when
// another consumer holds an unreleased batch.
func (q *Queue[T]) TryDequeue() (*Vectored[T], error) {
	// Take the single-consumer ticket.
	var pending uint64
	for {
		pending = q.pendingDequeue.LoadRelaxed()
		if pending == dequeueHeld {
			return nil, ErrConflict
		}
		if q.pendingDequeue.CompareAndSwapRelaxed(pending, dequeueHeld) {
			break
		}
	}
	index := pending & 1
	buf := &q.buffers[index]
	remain := q.bufferRemain.LoadAcquire()
	var length uint64
	if pending>>1 != 0 {
		// A previous attempt timed out in snapshot; the batch length is
		// already fixed. By construction the deferred length is never
		// zero: rotation only proceeds when the buffer had used slots.
		length = pending >> 1
	} else {
		if index != remain&1 {
			panic("vecq: drain buffer desynchronized from active buffer")
		}
		capa := buf.capacity()
		if (remain&^closedFlag)>>1 == capa {
			// Nothing reserved since the last rotation.
			q.pendingDequeue.StoreRelaxed(pending)
			if remain&closedFlag != 0 {
				return nil, ErrClosed
			}
			return nil, ErrWouldBlock
		}

		// Rotate: prepare the other buffer, pre-fill it with any
		// overflow, then flip the active index. Producers that reserved
		// on the old index before the flip finish their inserts there;
		// snapshot below waits for them.
		nextIndex := index ^ 1
		next := &q.buffers[nextIndex]
		q.overflowMu.Lock()
		spill := q.overflow
		q.overflow = nil
		spillLen := uint64(len(spill))
		nextCapa := next.capacity() + spillLen
		if hint := q.capacity.LoadRelaxed(); hint > nextCapa {
			nextCapa = hint
		}
		q.setCapacity(nextCapa)
		next.resize(nextCapa)
		for i, elem := range spill {
			next.insert(nextCapa-uint64(i), elem)
		}
		nextRemain := nextIndex | (nextCapa-spillLen)<<1
		for {
			if q.bufferRemain.CompareAndSwapAcqRel(remain, nextRemain|(remain&closedFlag)) {
				break
			}
			remain = q.bufferRemain.LoadRelaxed()
		}
		q.overflowMu.Unlock()
		// The flip fixed the old buffer's length: reservations made
		// after it land on the new side.
		length = capa - (remain&^closedFlag)>>1
	}
	slices, totalSize, ok := buf.snapshot(length)
	if !ok {
		// A reserver is still mid-insert. Park the ticket with the fixed
		// length so the next attempt resumes here.
		q.pendingDequeue.StoreRelaxed(index | length<<1)
		return nil, ErrPending
	}
	return &Vectored[T]{queue: q, bufferIndex: index, slices: slices, totalSize: totalSize}, nil
}

// release is called by Vectored.Release: drop the batch's payloads and
// re-arm dequeue at the buffer producers are filling now.
func (q *Queue[T]) release(index, length uint64) {
	q.buffers[index].clear(length)
	q.pendingDequeue.StoreRelaxed(index ^ 1)
}
