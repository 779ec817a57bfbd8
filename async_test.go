// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package vecq_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/vecq"
)

func TestAsyncQueueBasic(t *testing.T) {
	q := vecq.NewAsyncWithCapacity[vecq.Bytes](4)
	ctx := context.Background()

	if err := q.Enqueue(ctx, vecq.Bytes{1}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	batch, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if got := concat(batch.Slices()); !bytes.Equal(got, []byte{1}) {
		t.Fatalf("batch: got %v, want [1]", got)
	}
	batch.Release()
}

func TestAsyncQueueEnqueueSuspendsUntilDrain(t *testing.T) {
	if vecq.RaceEnabled {
		t.Skip("skip: payload handoff relies on atomix memory ordering")
	}

	q := vecq.NewAsyncWithCapacity[vecq.Bytes](1)
	ctx := context.Background()

	if err := q.TryEnqueue(vecq.Bytes{'a'}); err != nil {
		t.Fatalf("TryEnqueue: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := q.Enqueue(ctx, vecq.Bytes{'b'}); err != nil {
			t.Errorf("Enqueue: %v", err)
		}
	}()

	select {
	case <-done:
		t.Fatal("Enqueue returned before the buffer was drained")
	case <-time.After(20 * time.Millisecond):
	}

	batch, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if got := concat(batch.Slices()); !bytes.Equal(got, []byte("a")) {
		t.Fatalf("first batch: got %q, want %q", got, "a")
	}
	batch.Release()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for suspended producer")
	}

	batch, err = q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if got := concat(batch.Slices()); !bytes.Equal(got, []byte("b")) {
		t.Fatalf("second batch: got %q, want %q", got, "b")
	}
	batch.Release()
}

func TestAsyncQueueDequeueSuspendsUntilEnqueue(t *testing.T) {
	if vecq.RaceEnabled {
		t.Skip("skip: payload handoff relies on atomix memory ordering")
	}

	q := vecq.NewAsyncWithCapacity[vecq.Bytes](4)
	ctx := context.Background()

	type result struct {
		got []byte
		err error
	}
	resC := make(chan result, 1)
	go func() {
		batch, err := q.Dequeue(ctx)
		if err != nil {
			resC <- result{err: err}
			return
		}
		got := concat(batch.Slices())
		batch.Release()
		resC <- result{got: got}
	}()

	time.Sleep(20 * time.Millisecond)
	if err := q.Enqueue(ctx, vecq.Bytes{'x'}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case res := <-resC:
		if res.err != nil {
			t.Fatalf("Dequeue: %v", res.err)
		}
		if !bytes.Equal(res.got, []byte("x")) {
			t.Fatalf("batch: got %q, want %q", res.got, "x")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for suspended consumer")
	}
}

func TestAsyncQueueEnqueueCancel(t *testing.T) {
	if vecq.RaceEnabled {
		t.Skip("skip: concurrent queue access uses atomix memory ordering")
	}

	q := vecq.NewAsyncWithCapacity[vecq.Bytes](1)

	if err := q.TryEnqueue(vecq.Bytes{0}); err != nil {
		t.Fatalf("TryEnqueue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errC := make(chan error, 1)
	go func() {
		errC <- q.Enqueue(ctx, vecq.Bytes{1})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errC:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Enqueue after cancel: got %v, want context.Canceled", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for canceled producer")
	}

	// The canceled element was never taken: only the first payload is
	// queued.
	if q.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", q.Len())
	}
}

func TestAsyncQueueDequeueCancel(t *testing.T) {
	if vecq.RaceEnabled {
		t.Skip("skip: concurrent queue access uses atomix memory ordering")
	}

	q := vecq.NewAsyncWithCapacity[vecq.Bytes](4)

	ctx, cancel := context.WithCancel(context.Background())
	errC := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		errC <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errC:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Dequeue after cancel: got %v, want context.Canceled", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for canceled consumer")
	}

	// Cancellation mutates no dequeue state: a later dequeue works.
	if err := q.TryEnqueue(vecq.Bytes{7}); err != nil {
		t.Fatalf("TryEnqueue: %v", err)
	}
	batch, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("Dequeue after cancel: %v", err)
	}
	batch.Release()
}

func TestAsyncQueueCloseWakesBothSides(t *testing.T) {
	if vecq.RaceEnabled {
		t.Skip("skip: concurrent queue access uses atomix memory ordering")
	}

	q := vecq.NewAsyncWithCapacity[vecq.Bytes](1)
	ctx := context.Background()

	if err := q.TryEnqueue(vecq.Bytes{0}); err != nil {
		t.Fatalf("TryEnqueue: %v", err)
	}

	prodErr := make(chan error, 1)
	go func() {
		prodErr <- q.Enqueue(ctx, vecq.Bytes{1})
	}()

	consErr := make(chan error, 1)
	go func() {
		// Drain the queued payload, then park on the empty queue.
		batch, err := q.Dequeue(ctx)
		if err != nil {
			consErr <- err
			return
		}
		batch.Release()
		_, err = q.Dequeue(ctx)
		consErr <- err
	}()

	time.Sleep(50 * time.Millisecond)
	q.Close()

	select {
	case err := <-prodErr:
		// The producer either won a slot freed by the drain before the
		// close landed, or observed the close.
		if err != nil && !errors.Is(err, vecq.ErrClosed) {
			t.Fatalf("Enqueue: got %v, want nil or ErrClosed", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for producer on close")
	}

	select {
	case err := <-consErr:
		if err != nil && !errors.Is(err, vecq.ErrClosed) {
			t.Fatalf("Dequeue: got %v, want batch or ErrClosed", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for consumer on close")
	}
}
