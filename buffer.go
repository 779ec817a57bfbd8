// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package vecq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// snapshotSpin bounds the wait for a delinquent producer in snapshot.
// A producer that has reserved a slot is expected to finish its insert
// within a handful of instructions; past this bound the caller surfaces
// ErrPending and parks on its own primitive instead.
const snapshotSpin = 100

// buffer is one half of the queue's double buffer.
//
// owned holds the payloads; slices is the scatter/gather array, two entries
// longer than owned. slices[i+1] mirrors the byte view of owned[i]. For a
// batch of n payloads the framing slots are slices[0] and slices[n+1]; they
// stay nil unless a Frame installs a header or trailer.
//
// owned and slices are plain memory guarded by the acquire-release
// protocol on len: a producer that won a reservation writes its slot, then
// publishes with AddAcqRel on totalSize and len; the consumer's acquire
// load of len in snapshot makes those writes visible. The race detector
// cannot track this (see RaceEnabled).
type buffer[T Payload] struct {
	owned     []T
	slices    [][]byte
	len       atomix.Uint64
	totalSize atomix.Uint64
}

func (b *buffer[T]) capacity() uint64 {
	return uint64(len(b.owned))
}

func (b *buffer[T]) length() uint64 {
	return b.len.LoadRelaxed()
}

// resize grows the buffer to capa slots. No-op for capa at or below the
// current capacity; shrinking is not supported. The queue only resizes a
// buffer that no producer can be mid-insert on: the non-active buffer
// during rotation, or both buffers during the zero-capacity bootstrap.
func (b *buffer[T]) resize(capa uint64) {
	if capa > b.capacity() {
		b.owned = make([]T, capa)
		b.slices = make([][]byte, capa+2)
	}
}

// insert writes elem into the slot granted by reservation number slot
// (the remaining-slots count observed by the winning CAS, counting down
// from capacity) and publishes it.
//
// The published slice is taken from the stored copy, not the parameter,
// so it references memory owned by the buffer for payload types whose
// view points into the value itself.
func (b *buffer[T]) insert(slot uint64, elem T) {
	i := b.capacity() - slot
	b.owned[i] = elem
	view := b.owned[i].Bytes()
	b.slices[i+1] = view
	b.totalSize.AddAcqRel(uint64(len(view)))
	b.len.AddAcqRel(1)
}

// snapshot waits for all n reserved inserts to land, then returns the
// slice window covering the batch plus both framing slots, and the total
// payload byte count. ok is false if a producer is still mid-insert after
// the spin bound.
func (b *buffer[T]) snapshot(n uint64) (slices [][]byte, totalSize uint64, ok bool) {
	sw := spin.Wait{}
	for range snapshotSpin {
		if b.len.LoadAcquire() == n {
			return b.slices[:n+2], b.totalSize.LoadAcquire(), true
		}
		sw.Once()
	}
	return nil, 0, false
}

// clear drops the n filled slots and resets the published counters.
// The slice entries of the used window are nilled as well: they must read
// as empty framing slots for a shorter batch on the next cycle, and the
// payload backing arrays have to become collectable.
func (b *buffer[T]) clear(n uint64) {
	var zero T
	for i := range n {
		b.owned[i] = zero
		b.slices[i+1] = nil
	}
	b.len.StoreRelaxed(0)
	b.totalSize.StoreRelaxed(0)
}
