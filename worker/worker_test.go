package worker

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/momentics/evservice/event"
)

type fakeTC struct{ threadIdx, workerIdx int }

func (f fakeTC) ThreadIndex() int { return f.threadIdx }
func (f fakeTC) WorkerIndex() int { return f.workerIdx }

type recorder struct {
	order *[]int
	mu    *sync.Mutex
	n     int
	auto  bool
}

func (r *recorder) Handle(tc event.ThreadContext) bool {
	r.mu.Lock()
	*r.order = append(*r.order, r.n)
	r.mu.Unlock()
	return r.auto
}

func TestWorkerDrainPreservesFIFOAndAutoRelease(t *testing.T) {
	w := New(0)
	var order []int
	var mu sync.Mutex
	pools := make([]*event.Pool[*recorder], 10)
	events := make([]*event.Event, 10)
	for i := 0; i < 10; i++ {
		r := &recorder{order: &order, mu: &mu, n: i, auto: i%2 == 0}
		pools[i] = event.NewPool(func() *recorder { return r })
		events[i] = pools[i].Get()
		w.Push(events[i])
	}

	handled := w.Drain(fakeTC{workerIdx: 0})
	if handled != 10 {
		t.Fatalf("expected 10 handled, got %d", handled)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order, position %d had %d", i, v)
		}
	}
	// Only events whose handler returned true go back to their pool.
	for i := range events {
		recycled := pools[i].Get() == events[i]
		if recycled != (i%2 == 0) {
			t.Fatalf("event %d: recycled=%v, want %v", i, recycled, i%2 == 0)
		}
	}
}

func TestWorkshopAtMostOneExecutorPerWorker(t *testing.T) {
	w := New(0)
	ws := NewWorkshop([]*Worker{w})

	const attempts = 1000
	var successes atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < attempts; j++ {
				if got := ws.TryAcquire(0); got != nil {
					successes.Add(1)
					if again := ws.TryAcquire(0); again != nil {
						t.Error("slot handed out a second time while held")
					}
					ws.Release(got)
				}
			}
		}()
	}
	wg.Wait()
	if successes.Load() == 0 {
		t.Fatal("expected at least one successful acquire")
	}
}

func TestWorkshopExclusionUnderContention(t *testing.T) {
	w := New(0)
	ws := NewWorkshop([]*Worker{w})

	var holders atomic.Int32
	var maxHolders atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				got := ws.TryAcquire(0)
				if got == nil {
					continue
				}
				n := holders.Add(1)
				for {
					m := maxHolders.Load()
					if n <= m || maxHolders.CompareAndSwap(m, n) {
						break
					}
				}
				holders.Add(-1)
				ws.Release(got)
			}
		}()
	}
	wg.Wait()
	if maxHolders.Load() > 1 {
		t.Fatalf("expected at most one concurrent holder, observed %d", maxHolders.Load())
	}
}
