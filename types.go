// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package vecq

// Payload is the constraint for values stored in a queue.
//
// Bytes must return a view that stays valid and immutable for as long as
// the value lives inside the queue, i.e. until the batch that carried it
// out is released. The queue never inspects or mutates the bytes.
type Payload interface {
	Bytes() []byte
}

// Bytes is a ready-made byte-slice payload.
//
// Example:
//
//	q := vecq.NewWithCapacity[vecq.Bytes](1024)
//	q.TryEnqueue(vecq.Bytes("hello"))
type Bytes []byte

// Bytes returns the slice itself.
func (b Bytes) Bytes() []byte { return b }

// Enqueuer is the producer-side interface shared by Queue, SyncQueue and
// AsyncQueue.
//
// Both operations are safe for concurrent use by multiple goroutines.
// On failure the element is never retained by the queue; the caller still
// owns it and may retry.
type Enqueuer[T Payload] interface {
	// TryEnqueue adds an element to the active buffer (non-blocking).
	// Returns nil on success, ErrWouldBlock if the buffer has no free
	// slots, ErrClosed if the queue is closed.
	TryEnqueue(elem T) error

	// EnqueueUnbounded adds an element, spilling into the overflow list
	// when the active buffer is full. Returns nil on success or ErrClosed.
	EnqueueUnbounded(elem T) error
}

// Dequeuer is the consumer-side interface shared by Queue, SyncQueue and
// AsyncQueue.
//
// Only one logical consumer may drain a queue at a time; a second
// concurrent caller gets ErrConflict.
type Dequeuer[T Payload] interface {
	// TryDequeue removes all currently queued elements as one batch
	// (non-blocking). Returns ErrWouldBlock if the queue is empty,
	// ErrPending if a producer is mid-insert (retry), ErrClosed if the
	// queue is closed and drained, ErrConflict if another consumer holds
	// an unreleased batch.
	TryDequeue() (*Vectored[T], error)
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
