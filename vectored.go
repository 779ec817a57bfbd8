// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package vecq

// Vectored is one dequeued batch: a borrowed window over the drained
// buffer's scatter/gather array.
//
// The window covers the batch's payload slices plus the two framing
// slots around them; slot 0 and slot n+1 are nil unless a Frame installs
// a header or trailer. The payload view converts directly to net.Buffers
// for a vectored write:
//
//	batch, err := q.TryDequeue()
//	if err == nil {
//	    bufs := net.Buffers(batch.Slices())
//	    bufs.WriteTo(conn)
//	    batch.Release()
//	}
//
// A batch must be released exactly once when the caller is done with it;
// until then the queue returns ErrConflict to further dequeues. All views
// handed out by the batch are invalid after Release.
type Vectored[T Payload] struct {
	queue       *Queue[T]
	bufferIndex uint64
	slices      [][]byte
	totalSize   uint64
}

// Len returns the number of payload slices in the batch.
func (v *Vectored[T]) Len() int {
	return len(v.slices) - 2
}

// Slices returns the payload slices, excluding the framing slots.
// Slices are ordered by reservation: earlier reservers at lower indices.
// Cross-producer ordering beyond that is not guaranteed.
func (v *Vectored[T]) Slices() [][]byte {
	return v.slices[1 : len(v.slices)-1]
}

// TotalSize returns the summed byte length of the payload slices. Framing
// installed later is not included.
func (v *Vectored[T]) TotalSize() int {
	return int(v.totalSize)
}

// Frame installs an optional header and trailer around the payload slices
// [start, end] (0-based, inclusive) and returns the framed window. A nil
// header or trailer leaves that side out.
//
// The header occupies the array slot just before payload start and the
// trailer the slot just after payload end; for the full range these are
// the batch's reserved framing slots. The previous slot contents are
// swapped out and put back by Restore, so the batch's own view stays
// intact for later frames.
//
// Panics if the range does not denote payload slices of the batch.
func (v *Vectored[T]) Frame(start, end int, header, trailer []byte) *Frame {
	if start < 0 || end < start || end >= v.Len() {
		panic("vecq: frame range out of bounds")
	}
	lo, hi := start, end+3
	f := &Frame{}
	if header != nil {
		f.savedHeader, v.slices[lo] = v.slices[lo], header
		f.hasHeader = true
	} else {
		lo++
	}
	if trailer != nil {
		f.savedTrailer, v.slices[hi-1] = v.slices[hi-1], trailer
		f.hasTrailer = true
	} else {
		hi--
	}
	f.slices = v.slices[lo:hi]
	return f
}

// Release destroys the batch's payloads, returns the buffer to rotation
// and re-arms dequeue. Safe to call more than once; only the first call
// takes effect.
func (v *Vectored[T]) Release() {
	if v.queue == nil {
		return
	}
	q := v.queue
	v.queue = nil
	q.release(v.bufferIndex, uint64(len(v.slices))-2)
}

// Frame is a framed sub-view of a batch: the selected payload slices with
// the installed header and/or trailer in place.
//
// Restore must be called before the underlying batch is used for another
// frame over an overlapping range, and before Release if a header or
// trailer was installed in a reserved framing slot that should read empty
// on the next cycle.
type Frame struct {
	slices       [][]byte
	savedHeader  []byte
	savedTrailer []byte
	hasHeader    bool
	hasTrailer   bool
}

// Slices returns the full framed window, including the installed header
// and trailer slots.
func (f *Frame) Slices() [][]byte {
	return f.slices
}

// Restore puts the swapped-out slot contents back into the batch's slice
// array. Safe to call more than once.
func (f *Frame) Restore() {
	if f.hasHeader {
		f.slices[0] = f.savedHeader
		f.hasHeader = false
	}
	if f.hasTrailer {
		f.slices[len(f.slices)-1] = f.savedTrailer
		f.hasTrailer = false
	}
}
