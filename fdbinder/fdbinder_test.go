// File: fdbinder/fdbinder_test.go
// Author: momentics <momentics@gmail.com>

package fdbinder

import (
	"errors"
	"os"
	"testing"

	"github.com/evreactor/core/api"
)

func TestFdBinderReadWrite(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	rb := New(r.Fd())
	wb := New(w.Fd())
	defer rb.Close()
	defer wb.Close()

	n, err := wb.Write([]byte("hello"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 5 {
		t.Fatalf("wrote %d bytes, want 5", n)
	}

	buf := make([]byte, 16)
	n, err = rb.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("read %q, want %q", buf[:n], "hello")
	}
}

func TestFdBinderCloseIsIdempotent(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer w.Close()
	b := New(r.Fd())

	if err := b.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestFdBinderReadAfterCloseIsIOError(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer w.Close()
	b := New(r.Fd())
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	buf := make([]byte, 4)
	_, err = b.Read(buf)
	var de *api.DispatchError
	if !errors.As(err, &de) || de.Kind != api.KindIO {
		t.Fatalf("got %v, want a KindIO DispatchError", err)
	}
}

type fakeSelector struct {
	added   []uintptr
	removed []uintptr
}

func (f *fakeSelector) AddListener(fd uintptr, mask api.PollMask, listener api.SelectorListener, cookie uintptr) error {
	f.added = append(f.added, fd)
	return nil
}

func (f *fakeSelector) RemoveListener(fd uintptr, listener api.SelectorListener) error {
	f.removed = append(f.removed, fd)
	return nil
}

func TestFdBinderSetSelectorDetachesPrior(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	b := New(r.Fd())
	l := &api.MockSelectorListener{}

	selA := &fakeSelector{}
	if err := b.SetSelector(l, selA, api.POLLIN); err != nil {
		t.Fatalf("SetSelector selA: %v", err)
	}

	selB := &fakeSelector{}
	if err := b.SetSelector(l, selB, api.POLLIN); err != nil {
		t.Fatalf("SetSelector selB: %v", err)
	}

	if len(selA.removed) != 1 || selA.removed[0] != r.Fd() {
		t.Fatalf("selA.removed = %v, want [%d]", selA.removed, r.Fd())
	}
	if len(selB.added) != 1 || selB.added[0] != r.Fd() {
		t.Fatalf("selB.added = %v, want [%d]", selB.added, r.Fd())
	}
}
