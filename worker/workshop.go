package worker

import "sync/atomic"

// Workshop is an array of atomic slots, one per worker, each holding either
// the worker's address (available) or nil (currently being drained by some
// thread). Acquiring a slot is a single atomic swap; releasing is a single
// store. This replaces per-worker locks: no two threads ever observe a
// non-nil swap result for the same slot at the same time, so a worker's
// single-consumer MPSC queue contract holds.
type Workshop struct {
	slots []atomic.Pointer[Worker]
}

// NewWorkshop populates one slot per worker, in worker-index order.
func NewWorkshop(workers []*Worker) *Workshop {
	ws := &Workshop{slots: make([]atomic.Pointer[Worker], len(workers))}
	for _, w := range workers {
		ws.slots[w.Index].Store(w)
	}
	return ws
}

// TryAcquire attempts to take exclusive drain rights over worker n. Returns
// the worker on success, or nil if another thread currently holds it.
func (ws *Workshop) TryAcquire(n int) *Worker {
	return ws.slots[n].Swap(nil)
}

// Release returns w to its slot, making it available for the next
// TryAcquire. Must only be called by the thread that currently holds w.
func (ws *Workshop) Release(w *Worker) {
	ws.slots[w.Index].Store(w)
}

// Len returns the number of worker slots.
func (ws *Workshop) Len() int {
	return len(ws.slots)
}
