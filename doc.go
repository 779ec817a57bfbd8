// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package vecq provides a batching byte-slice queue for vectored I/O.
//
// Many small payloads written individually cost one syscall each. vecq
// amortizes that cost: producers enqueue individually owned byte payloads
// concurrently, and a single consumer dequeues everything currently
// queued at once, as one contiguous scatter/gather slice array ready for
// a vectored write (writev), with reserved slots for an optional per-batch
// header and trailer.
//
// # Quick Start
//
//	q := vecq.NewWithCapacity[vecq.Bytes](1024)
//
//	// Producers (any number of goroutines)
//	if err := q.TryEnqueue(vecq.Bytes(msg)); vecq.IsWouldBlock(err) {
//	    // Buffer full - handle backpressure
//	}
//
//	// Consumer (one goroutine)
//	batch, err := q.TryDequeue()
//	if err == nil {
//	    bufs := net.Buffers(batch.Slices())
//	    bufs.WriteTo(conn) // one writev for the whole batch
//	    batch.Release()
//	}
//
// # Design
//
// The queue is a double buffer driven by one packed atomic word. Producers
// reserve a slot with a single CAS that decrements a remaining-slots
// counter while pinning the buffer identity and checking closure in the
// same snapshot. The consumer's dequeue flips the active buffer in one CAS
// (rotation) and takes the previously active buffer as a batch; producers
// that were mid-insert on the old side finish there, and the consumer's
// snapshot waits for them under acquire ordering.
//
// Compared to a ring buffer there are no per-slot ready flags and no wrap:
// producers race on one counter, and every batch is a contiguous slice
// array.
//
// # Unit of Dequeue
//
// The unit of dequeue is always a full batch. Within a batch, slices are
// ordered by reservation (earlier reservers at lower indices); there is no
// cross-producer FIFO guarantee and no per-item dequeue.
//
// # Bounded and Unbounded Enqueue
//
// TryEnqueue is bounded: a full active buffer returns ErrWouldBlock.
// EnqueueUnbounded never rejects for capacity: it spills into a
// mutex-guarded overflow list, which the next rotation drains into the
// head of the new active buffer, growing it as needed. A queue created
// with New starts at capacity 0 and grows on first unbounded use.
//
// # Framing
//
// For a batch of n payloads the underlying slice array has n+2 slots;
// slot 0 and slot n+1 are nil unless replaced. Frame installs a header
// and/or trailer in place over any contiguous payload range:
//
//	frame := batch.Frame(0, batch.Len()-1, header, trailer)
//	bufs := net.Buffers(frame.Slices()) // header, payloads..., trailer
//	bufs.WriteTo(conn)
//	frame.Restore()
//
// Restore puts the swapped-out slots back so the batch's own view stays
// intact for later frames.
//
// # Blocking and Suspending Adapters
//
// The core is non-blocking. SyncQueue adds goroutine-blocking Enqueue and
// Dequeue with optional timeouts on a condition variable. AsyncQueue adds
// context-aware variants that suspend on channels and honor cancellation.
// Both expose the full non-blocking surface as well.
//
// # Error Handling
//
// Operations return semantic sentinel errors sourced from
// [code.hybscloud.com/iox] where iox has the kind:
//
//	vecq.ErrWouldBlock // full (enqueue) or empty (dequeue); retry
//	vecq.ErrPending    // a producer is mid-insert; call dequeue again
//	vecq.ErrClosed     // sticky closed bit set; Reopen restores enqueue
//	vecq.ErrConflict   // second consumer while a batch is unreleased
//
// ErrWouldBlock and ErrPending are control flow signals, not failures:
//
//	vecq.IsWouldBlock(err)  // true if full/empty
//	vecq.IsSemantic(err)    // true if control flow signal
//	vecq.IsNonFailure(err)  // true if nil, ErrWouldBlock or ErrPending
//
// On every enqueue failure the caller keeps the element and may retry.
//
// # Thread Safety
//
// Any number of producer goroutines; exactly one logical consumer at a
// time. The consumer side is self-defending: a second concurrent
// TryDequeue returns ErrConflict instead of corrupting state. A batch
// must be released before the next dequeue can succeed.
//
// # Race Detection
//
// Payload slots and the slice array are plain memory guarded by
// acquire-release orderings on atomix counters. The race detector cannot
// observe happens-before established this way and reports false
// positives; tests that hand payload memory across goroutines are skipped
// under the race detector. See RaceEnabled.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause
// instructions.
package vecq
