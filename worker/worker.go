// Package worker implements the Worker and Workshop abstractions: a
// worker owns one MPSC event queue, and the workshop enforces that at most
// one thread drains any given worker at a time.
package worker

import "github.com/momentics/evservice/event"

// Worker holds one MPSC event queue and its index in the engine's worker
// array. Pushing is always safe; draining requires holding the worker's
// workshop slot.
type Worker struct {
	Index int
	queue *event.Queue
}

// New returns an empty worker at the given index.
func New(index int) *Worker {
	return &Worker{Index: index, queue: event.NewQueue()}
}

// Push enqueues e for later draining. Lock-free, safe from any goroutine.
func (w *Worker) Push(e *event.Event) {
	w.queue.Push(e)
}

// Empty reports whether the worker's queue looked empty at the moment of
// the call. Used by the release-time re-notify check: a thread that
// drained the queue dry, then released the worker, must re-notify if a
// push landed between the last empty Pop and the release.
func (w *Worker) Empty() bool {
	return w.queue.LooksEmpty()
}

// Drain pops and handles events until the queue is momentarily empty.
// Returns the number of events handled. The caller (the engine's thread
// main loop) is responsible for treating a handler panic as fatal; Drain
// itself does not recover.
func (w *Worker) Drain(tc event.ThreadContext) int {
	handled := 0
	for {
		e := w.queue.Pop()
		if e == nil {
			return handled
		}
		handled++
		if e.Handle(tc) {
			e.Release()
		}
	}
}

// DrainDiscard pops and releases every queued event without invoking its
// handler. Used during engine teardown, once no thread is dispatching
// anymore, to free residual events without racing a real handler.
func (w *Worker) DrainDiscard() int {
	n := 0
	for {
		e := w.queue.Pop()
		if e == nil {
			return n
		}
		n++
		e.Release()
	}
}
