package engine

import (
	"testing"
	"time"

	"github.com/momentics/evservice/logging"
)

// Engine.Control exposes the engine's tuning knobs and live counters
// through the generic api.Control surface, backed by the engine's own
// metrics registry rather than a second one.
func TestEngineControlSurface(t *testing.T) {
	e, err := New(2, 2, logging.Noop{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stop := startEngine(t, e)
	defer stop()

	ctl := e.Control()
	cfg := ctl.GetConfig()
	if cfg["engine.thread_num"] != e.ThreadNum() {
		t.Fatalf("engine.thread_num = %v, want %d", cfg["engine.thread_num"], e.ThreadNum())
	}
	if cfg["engine.worker_num"] != e.WorkerNum() {
		t.Fatalf("engine.worker_num = %v, want %d", cfg["engine.worker_num"], e.WorkerNum())
	}

	reloaded := make(chan struct{}, 1)
	ctl.OnReload(func() { reloaded <- struct{}{} })
	if err := ctl.SetConfig(map[string]any{"custom.knob": 7}); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	select {
	case <-reloaded:
	case <-time.After(time.Second):
		t.Fatal("OnReload hook never fired after SetConfig")
	}

	done := make(chan struct{})
	e.Post(func(tc *ThreadContext) { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("post never ran")
	}

	stats := ctl.Stats()
	if v, ok := stats["evservice_posts_total"]; !ok || v.(float64) <= 0 {
		t.Fatalf("expected evservice_posts_total > 0 in Stats, got %v", stats["evservice_posts_total"])
	}
	if stats["custom.knob"] != 7 {
		t.Fatalf("expected custom.knob to survive into Stats, got %v", stats["custom.knob"])
	}

	probed := make(chan struct{}, 1)
	ctl.RegisterDebugProbe("test.probe", func() any {
		probed <- struct{}{}
		return "ok"
	})
	stats = ctl.Stats()
	if stats["debug.test.probe"] != "ok" {
		t.Fatalf("expected debug.test.probe in Stats, got %v", stats["debug.test.probe"])
	}
	select {
	case <-probed:
	default:
		t.Fatal("registered probe was never invoked by Stats")
	}
}

// A thread exit must scavenge its per-thread event registry through the
// auxiliary executor rather than leaving the old one (and its pools)
// referenced forever.
func TestThreadExitScavengesRegistry(t *testing.T) {
	e, err := New(1, 1, logging.Noop{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	before := e.threadRegistries[0]

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	posted := make(chan struct{})
	e.Post(func(tc *ThreadContext) { close(posted) })
	select {
	case <-posted:
	case <-time.After(5 * time.Second):
		t.Fatal("post never ran")
	}

	e.Stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not shut down in time")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		e.threadRegMu.Lock()
		after := e.threadRegistries[0]
		e.threadRegMu.Unlock()
		if after != before {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("thread exit never scavenged its per-thread registry")
		}
		time.Sleep(time.Millisecond)
	}

	e.Close()
}
