// File: dispatcher/dispatcher_test.go
// Author: momentics <momentics@gmail.com>

package dispatcher

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/evreactor/core/api"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	d := New(Config{Name: "test"})
	t.Cleanup(func() { _ = d.Shutdown() })
	return d
}

// S1: FIFO ordering of posted events.
func TestDispatcherFIFO(t *testing.T) {
	d := newTestDispatcher(t)
	recv := &api.MockReceiver{}

	for _, payload := range []int{1, 2, 3, 4, 5} {
		e := api.NewEvent(payload, nil)
		if err := d.Post(e, recv); err != nil {
			t.Fatalf("Post(%d): %v", payload, err)
		}
	}

	if err := d.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	got := recv.Snapshot()
	want := []any{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v entries, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

// S2: Send blocks until the handler has run, and the caller observes
// everything the handler wrote.
func TestDispatcherSendSynchronous(t *testing.T) {
	d := newTestDispatcher(t)

	var x int
	recv := receiverFunc(func(api.Event) {
		time.Sleep(50 * time.Millisecond)
		x = 42
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e := api.NewEvent(nil, nil)
		if err := d.Send(e, recv); err != nil {
			t.Errorf("Send: %v", err)
		}
	}()
	wg.Wait()

	if x != 42 {
		t.Fatalf("x = %d, want 42", x)
	}
}

// S3: Send from the dispatcher's own thread fails with WouldDeadlock.
func TestDispatcherSelfSendDeadlockGuard(t *testing.T) {
	d := newTestDispatcher(t)

	done := make(chan error, 1)
	var recv receiverFunc
	recv = receiverFunc(func(api.Event) {
		inner := api.NewEvent(nil, nil)
		done <- d.Send(inner, recv)
	})

	e := api.NewEvent(nil, nil)
	if err := d.Post(e, recv); err != nil {
		t.Fatalf("Post: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, api.ErrWouldDeadlock) {
			t.Fatalf("got %v, want WouldDeadlock", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for self-send result")
	}
}

func TestDispatcherPostAfterShutdownIsUnroutable(t *testing.T) {
	d := New(Config{Name: "test"})
	if err := d.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	e := api.NewEvent(nil, nil)
	if err := d.Post(e, &api.MockReceiver{}); !errors.Is(err, api.ErrUnroutable) {
		t.Fatalf("got %v, want Unroutable", err)
	}
}

func TestDispatcherShutdownIsIdempotent(t *testing.T) {
	d := New(Config{Name: "test"})
	if err := d.Shutdown(); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := d.Shutdown(); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

func TestDispatcherRemoveEvents(t *testing.T) {
	d := New(Config{Name: "test"})
	defer func() { _ = d.Shutdown() }()

	recv := &blockingReceiver{release: make(chan struct{})}
	first := api.NewEvent(1, nil)
	if err := d.Post(first, recv); err != nil {
		t.Fatalf("Post first: %v", err)
	}
	second := api.NewEvent(2, nil)
	if err := d.Post(second, recv); err != nil {
		t.Fatalf("Post second: %v", err)
	}

	removed := d.RemoveEvents(second.ID(), nil)
	close(recv.release)

	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}

type receiverFunc func(api.Event)

func (f receiverFunc) HandleEvent(e api.Event) { f(e) }

type blockingReceiver struct {
	release chan struct{}
}

func (b *blockingReceiver) HandleEvent(api.Event) {
	<-b.release
}
