// Package threaddata implements the per-worker-thread mailbox: the stop
// flag, wakeup counter, mutex/condvar wake edge, and the three lifecycle
// fan-out queues (tstart/texit/tsegv) described in the engine spec.
package threaddata

import (
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// LifecycleQueue is a FIFO of lifecycle handlers of type T, safe for
// concurrent Add (registration can race with a thread's startup drain) and
// single-consumer DrainAll (called once, by the owning thread).
type LifecycleQueue[T any] struct {
	mu sync.Mutex
	q  *queue.Queue
}

// NewLifecycleQueue returns an empty lifecycle queue.
func NewLifecycleQueue[T any]() *LifecycleQueue[T] {
	return &LifecycleQueue[T]{q: queue.New()}
}

// Add appends a handler. Safe from any goroutine.
func (lq *LifecycleQueue[T]) Add(v T) {
	lq.mu.Lock()
	lq.q.Add(v)
	lq.mu.Unlock()
}

// DrainAll removes and returns every queued handler, in FIFO order.
func (lq *LifecycleQueue[T]) DrainAll() []T {
	lq.mu.Lock()
	defer lq.mu.Unlock()
	out := make([]T, 0, lq.q.Length())
	for lq.q.Length() > 0 {
		out = append(out, lq.q.Remove().(T))
	}
	return out
}

// StartFunc, ExitFunc run with no arguments beyond the thread index; they
// close over whatever state the registrant needs.
type StartFunc func(threadIndex int)
type ExitFunc func(threadIndex int)

// FaultFunc receives the captured stack trace of the fault that triggered
// it, as a slice of human-readable frame descriptions.
type FaultFunc func(threadIndex int, stack []string)

// ThreadData is the per-thread state the engine's dispatch loop reads and
// mutates. Exactly one goroutine — the thread's own main-loop goroutine —
// runs the dispatch side; other goroutines only ever call Notify, Stop, or
// the lifecycle Add methods.
type ThreadData struct {
	Index int

	stop atomic.Bool
	cnt  atomic.Uint64
	mu   sync.Mutex
	cond *sync.Cond

	TStart *LifecycleQueue[StartFunc]
	TExit  *LifecycleQueue[ExitFunc]
	TSegv  *LifecycleQueue[FaultFunc]
}

// New returns a ThreadData for the given thread index.
func New(index int) *ThreadData {
	td := &ThreadData{
		Index:  index,
		TStart: NewLifecycleQueue[StartFunc](),
		TExit:  NewLifecycleQueue[ExitFunc](),
		TSegv:  NewLifecycleQueue[FaultFunc](),
	}
	td.cond = sync.NewCond(&td.mu)
	return td
}

// Notify performs a synchronized increment of the wakeup counter: it
// acquires the mutex before incrementing, so a thread already parked in
// Wait is guaranteed to observe the increment before it can miss the
// subsequent Signal (the no-lost-wakeup invariant).
func (td *ThreadData) Notify() {
	td.mu.Lock()
	td.cnt.Add(1)
	td.mu.Unlock()
	td.cond.Signal()
}

// Reset atomically swaps the wakeup counter to zero and returns its prior
// value. Lock-free; the engine's dispatch loop calls it at the start of
// each drain pass, and its idle phases then poll the counter with Peek.
func (td *ThreadData) Reset() uint64 {
	return td.cnt.Swap(0)
}

// Peek reads the wakeup counter without resetting it.
func (td *ThreadData) Peek() uint64 {
	return td.cnt.Load()
}

// Wait blocks on the condvar until the wakeup counter is nonzero or Stop
// has been called. Only the owning thread should call this.
func (td *ThreadData) Wait() {
	td.mu.Lock()
	for td.cnt.Load() == 0 && !td.stop.Load() {
		td.cond.Wait()
	}
	td.mu.Unlock()
}

// Stop sets the stop flag and wakes the thread if it is blocked.
func (td *ThreadData) Stop() {
	td.stop.Store(true)
	td.mu.Lock()
	td.mu.Unlock()
	td.cond.Broadcast()
}

// Stopped reports whether Stop has been called.
func (td *ThreadData) Stopped() bool {
	return td.stop.Load()
}
