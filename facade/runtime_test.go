package facade_test

import (
	"sync"
	"testing"
	"time"

	"github.com/evreactor/core/api"
	"github.com/evreactor/core/facade"
)

func newTestRuntime(t *testing.T) *facade.Runtime {
	t.Helper()
	cfg := facade.DefaultConfig()
	cfg.TimerTickMs = 5
	r, err := facade.New(cfg)
	if err != nil {
		t.Fatalf("facade.New: %v", err)
	}
	t.Cleanup(func() {
		if err := r.Shutdown(); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})
	return r
}

func TestRuntimeSubmitDispatchesToReceiver(t *testing.T) {
	r := newTestRuntime(t)
	recv := &api.MockReceiver{}
	ev := api.NewEvent("hello", nil)

	if err := r.Submit(ev, recv); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for len(recv.Snapshot()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event never delivered")
		}
		time.Sleep(time.Millisecond)
	}
	if got := recv.Snapshot(); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("Snapshot() = %v, want [hello]", got)
	}
}

func TestRuntimeScheduleFiresOnce(t *testing.T) {
	r := newTestRuntime(t)
	sched := r.GetScheduler()

	var mu sync.Mutex
	fired := 0
	_, err := sched.Schedule(20*time.Millisecond.Nanoseconds(), func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	mu.Lock()
	got := fired
	mu.Unlock()
	if got != 1 {
		t.Fatalf("fired = %d, want 1", got)
	}
}

func TestRuntimeReloadHookFiresOnSetConfig(t *testing.T) {
	r := newTestRuntime(t)

	called := make(chan struct{}, 1)
	r.RegisterReloadHook(func() {
		select {
		case called <- struct{}{}:
		default:
		}
	})

	if err := r.GetControl().SetConfig(map[string]any{"some": "data"}); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("reload hook not triggered")
	}
}

func TestRuntimeDebugAPIDumpsState(t *testing.T) {
	r := newTestRuntime(t)
	dbg := r.GetDebugAPI()
	if dbg == nil {
		t.Fatal("GetDebugAPI returned nil")
	}
	state := dbg.DumpState()
	for _, key := range []string{"dispatcher.queue_depth", "selector.listener_count", "timer.entry_count", "service.info"} {
		if _, ok := state[key]; !ok {
			t.Errorf("DumpState() missing key %q", key)
		}
	}
}

func TestRuntimeShutdownIsIdempotent(t *testing.T) {
	cfg := facade.DefaultConfig()
	cfg.TimerTickMs = 5
	r, err := facade.New(cfg)
	if err != nil {
		t.Fatalf("facade.New: %v", err)
	}
	if err := r.Shutdown(); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := r.Shutdown(); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
