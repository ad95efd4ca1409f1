// File: selector/selector_test.go
// Author: momentics <momentics@gmail.com>

package selector

import (
	"os"
	"testing"
	"time"

	"github.com/evreactor/core/api"
)

func newTestSelector(t *testing.T) *Selector {
	t.Helper()
	s, err := New(Config{Name: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

// S4: registering a listener on a readable pipe end delivers exactly
// one ProcessFileEvents call with POLLIN set, within 100ms of a write.
func TestSelectorReadiness(t *testing.T) {
	s := newTestSelector(t)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	listener := &api.MockSelectorListener{}
	if err := s.AddListener(r.Fd(), api.POLLIN, listener, 0); err != nil {
		t.Fatalf("AddListener: %v", err)
	}

	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.After(100 * time.Millisecond)
	for listener.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for ProcessFileEvents")
		case <-time.After(2 * time.Millisecond):
		}
	}

	calls := listener.Calls
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	if calls[0].Fd != r.Fd() {
		t.Fatalf("fd = %d, want %d", calls[0].Fd, r.Fd())
	}
	if calls[0].Revents&api.POLLIN == 0 {
		t.Fatalf("revents = %v, missing POLLIN", calls[0].Revents)
	}
}

// Readiness revents delivered to a listener must not carry
// POLLERR|POLLHUP|POLLNVAL unless poll actually reported them: the
// always-delivered guarantee is a subscription-mask property, not
// something synthesized into every callback.
func TestSelectorReadinessDoesNotSynthesizeErrorBits(t *testing.T) {
	s := newTestSelector(t)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	listener := &api.MockSelectorListener{}
	if err := s.AddListener(r.Fd(), api.POLLIN, listener, 0); err != nil {
		t.Fatalf("AddListener: %v", err)
	}

	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.After(100 * time.Millisecond)
	for listener.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for ProcessFileEvents")
		case <-time.After(2 * time.Millisecond):
		}
	}

	got := listener.Calls[0].Revents
	if got&(api.POLLHUP|api.POLLERR|api.POLLNVAL) != 0 {
		t.Fatalf("revents = %v, want no error bits on plain readiness", got)
	}
}

// Two listeners sharing one fd are each invoked exactly once per
// readiness event, not once per registered entry.
func TestSelectorSharedFdDeliversOncePerListener(t *testing.T) {
	s := newTestSelector(t)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	first := &api.MockSelectorListener{}
	second := &api.MockSelectorListener{}
	if err := s.AddListener(r.Fd(), api.POLLIN, first, 1); err != nil {
		t.Fatalf("AddListener first: %v", err)
	}
	if err := s.AddListener(r.Fd(), api.POLLIN, second, 2); err != nil {
		t.Fatalf("AddListener second: %v", err)
	}

	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.After(100 * time.Millisecond)
	for first.Len() == 0 || second.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for ProcessFileEvents")
		case <-time.After(2 * time.Millisecond):
		}
	}

	time.Sleep(20 * time.Millisecond)
	if got := first.Len(); got != 1 {
		t.Fatalf("first listener called %d times, want 1", got)
	}
	if got := second.Len(); got != 1 {
		t.Fatalf("second listener called %d times, want 1", got)
	}
}

// AddListener then RemoveListener leaves the selector's listener list
// exactly as it was before the call.
func TestSelectorAddRemoveListenerRoundTrip(t *testing.T) {
	s := newTestSelector(t)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	before := s.Listeners()

	listener := &api.MockSelectorListener{}
	if err := s.AddListener(r.Fd(), api.POLLIN, listener, 42); err != nil {
		t.Fatalf("AddListener: %v", err)
	}
	if err := s.RemoveListener(r.Fd(), listener); err != nil {
		t.Fatalf("RemoveListener: %v", err)
	}

	after := s.Listeners()
	if len(after) != len(before) {
		t.Fatalf("listener count = %d, want %d", len(after), len(before))
	}
}

func TestSelectorRemoveListenerNotFound(t *testing.T) {
	s := newTestSelector(t)
	listener := &api.MockSelectorListener{}
	if err := s.RemoveListener(999, listener); err == nil {
		t.Fatal("expected NotFound error")
	}
}

func TestSelectorShutdownIdempotent(t *testing.T) {
	s, err := New(Config{Name: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Shutdown(); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := s.Shutdown(); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

// Selector also satisfies the plain Dispatcher FIFO/Post contract via
// delegation.
func TestSelectorDelegatesPost(t *testing.T) {
	s := newTestSelector(t)
	recv := &api.MockReceiver{}

	e := api.NewEvent("payload", nil)
	if err := s.Post(e, recv); err != nil {
		t.Fatalf("Post: %v", err)
	}

	deadline := time.After(200 * time.Millisecond)
	for len(recv.Snapshot()) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for post delivery")
		case <-time.After(2 * time.Millisecond):
		}
	}
	got := recv.Snapshot()
	if len(got) != 1 || got[0] != "payload" {
		t.Fatalf("got %v, want [payload]", got)
	}
}
