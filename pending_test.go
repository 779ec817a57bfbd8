// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package vecq_test

import (
	"bytes"
	"errors"
	"testing"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/vecq"
)

// gated is a payload whose byte view blocks until its gate is closed,
// signalling entry first. It stalls a producer between winning a
// reservation and publishing the insert, which is the window the Pending
// result exists for.
type gated struct {
	b       []byte
	entered chan struct{}
	gate    chan struct{}
}

func (g *gated) Bytes() []byte {
	if g.entered != nil {
		close(g.entered)
		g.entered = nil
	}
	<-g.gate
	return g.b
}

// open returns an already-open gate.
func open() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func TestDequeuePendingDefersAndResumes(t *testing.T) {
	if vecq.RaceEnabled {
		t.Skip("skip: payload handoff relies on atomix memory ordering")
	}

	q := vecq.NewWithCapacity[*gated](2)

	if err := q.TryEnqueue(&gated{b: []byte{1}, gate: open()}); err != nil {
		t.Fatalf("TryEnqueue: %v", err)
	}

	entered := make(chan struct{})
	gate := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := q.TryEnqueue(&gated{b: []byte{2}, entered: entered, gate: gate}); err != nil {
			t.Errorf("gated TryEnqueue: %v", err)
		}
	}()
	// Once the producer is inside its byte-view call, its reservation is
	// won but the insert is unpublished.
	<-entered

	// The dequeue rotates, fails to snapshot, and parks the deferred
	// length.
	if _, err := q.TryDequeue(); !errors.Is(err, vecq.ErrPending) {
		t.Fatalf("TryDequeue with stalled producer: got %v, want ErrPending", err)
	}
	if !vecq.IsNonFailure(vecq.ErrPending) {
		t.Fatal("ErrPending must classify as non-failure")
	}
	// The deferred state survives another attempt.
	if _, err := q.TryDequeue(); !errors.Is(err, vecq.ErrPending) {
		t.Fatalf("second TryDequeue: got %v, want ErrPending", err)
	}

	// Unblock the producer; the parked dequeue resumes at the same
	// length and completes.
	close(gate)
	<-done
	backoff := iox.Backoff{}
	for {
		batch, err := q.TryDequeue()
		if errors.Is(err, vecq.ErrPending) {
			backoff.Wait()
			continue
		}
		if err != nil {
			t.Fatalf("TryDequeue after unblock: %v", err)
		}
		if batch.Len() != 2 {
			t.Fatalf("batch len: got %d, want 2", batch.Len())
		}
		var got []byte
		for _, s := range batch.Slices() {
			got = append(got, s...)
		}
		if !bytes.Equal(got, []byte{1, 2}) {
			t.Fatalf("batch: got %v, want [1 2]", got)
		}
		batch.Release()
		return
	}
}
