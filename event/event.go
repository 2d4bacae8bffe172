// Package event defines the heap-allocated unit of work dispatched by workers.
//
// An Event carries an intrusive next-link (so it can sit in an MPSC queue
// without a separate wrapper allocation), a back-reference to the pool it
// was allocated from, and a polymorphic Handler payload.
package event

import "sync/atomic"

// ThreadContext is the minimal surface a Handler needs from the thread that
// is currently draining it: posting follow-up work, routing to a specific
// strand, and identifying which worker/thread is executing. Concrete engines
// implement this; the event package only depends on the interface, avoiding
// an import cycle back to the engine.
type ThreadContext interface {
	// ThreadIndex returns the index of the thread currently executing.
	ThreadIndex() int
	// WorkerIndex returns the index of the worker currently being drained.
	WorkerIndex() int
}

// Handler is the polymorphic payload of an Event. Handle returns true when
// the engine should auto-release the event back to its pool once Handle
// returns, and false when ownership has been retained elsewhere (e.g. a
// coroutine suspending mid-handler).
type Handler interface {
	Handle(tc ThreadContext) bool
}

// releaser is satisfied by *Pool[T] for any T, letting Event.Release stay
// non-generic while pools remain typed.
type releaser interface {
	put(e *Event)
}

// Event is the object that actually flows through worker queues. Events
// obtained through a Pool are recycled; events built with New (which the
// engine's Post and coroutine Resume do once per submission) are freshly
// heap-allocated each time and are not pooled.
type Event struct {
	next    atomic.Pointer[Event]
	pool    releaser
	handler Handler
}

// New wraps a Handler in an unpooled Event. Used for events that are
// constructed directly by callers (Engine.Async) rather than through a Pool.
func New(h Handler) *Event {
	return &Event{handler: h}
}

// Handle invokes the underlying handler.
func (e *Event) Handle(tc ThreadContext) bool {
	return e.handler.Handle(tc)
}

// Payload returns the event's handler, for callers that need type-switch
// access to it.
func (e *Event) Payload() Handler {
	return e.handler
}

// Release returns the event to its origin pool. A no-op for events that were
// never pool-allocated. Safe to call from any goroutine.
func (e *Event) Release() {
	if e.pool != nil {
		e.pool.put(e)
	}
}
