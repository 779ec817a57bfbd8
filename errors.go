// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package vecq

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For TryEnqueue: the active buffer has no remaining slots (backpressure).
// For TryDequeue: both buffers are empty.
// For the timeout variants on SyncQueue: the deadline passed first.
//
// ErrWouldBlock is a control flow signal, not a failure. The caller should
// retry later (blocking adapter, backoff) or switch to EnqueueUnbounded.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrPending indicates TryDequeue observed a producer that has reserved a
// slot but not yet finished writing it. The queue parks the dequeue state
// so the next TryDequeue resumes at the same batch length; the caller
// should simply call again.
//
// ErrPending is transient and classifies as a non-failure. It is an alias
// for [iox.ErrMore] ("partial progress, call again").
var ErrPending = iox.ErrMore

// ErrClosed indicates the queue's sticky closed bit is set.
//
// For enqueue it is terminal until Reopen; the caller keeps the element.
// For dequeue it is returned only once all batches have been drained.
var ErrClosed = errors.New("vecq: queue closed")

// ErrConflict indicates another consumer currently holds an unreleased
// batch. It never arises when every batch is released before the next
// dequeue; seeing it means a dequeue ran while a batch was unreleased,
// whether from a second goroutine or from the holder itself.
var ErrConflict = errors.New("vecq: concurrent dequeue")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil, ErrWouldBlock, or ErrPending.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
