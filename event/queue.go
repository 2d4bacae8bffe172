package event

import "sync/atomic"

// Queue is a multi-producer/single-consumer intrusive FIFO of Events. Any
// number of goroutines may call Push concurrently; only one goroutine at a
// time may call Pop (the workshop is what enforces that single-consumer
// contract at the worker level — Queue itself trusts its caller).
//
// The algorithm is Dmitry Vyukov's stub-based intrusive MPSC queue: Push is
// a single atomic swap plus a plain store; Pop is amortized O(1) and never
// blocks, returning nil ("none") when the queue is momentarily empty even
// while a Push is linearizing concurrently.
type Queue struct {
	head atomic.Pointer[Event] // producer-side, CAS/swap target
	tail *Event                // consumer-only
	stub Event                 // sentinel, never carries a handler
}

// NewQueue returns an empty queue ready for use.
func NewQueue() *Queue {
	q := &Queue{}
	q.head.Store(&q.stub)
	q.tail = &q.stub
	return q
}

// Push enqueues e. Lock-free and safe from any number of concurrent callers.
func (q *Queue) Push(e *Event) {
	e.next.Store(nil)
	prev := q.head.Swap(e)
	prev.next.Store(e)
}

// Pop removes and returns the oldest event, or nil if the queue is
// momentarily empty. Must only be called by the current single consumer.
func (q *Queue) Pop() *Event {
	tail := q.tail
	next := tail.next.Load()

	if tail == &q.stub {
		if next == nil {
			return nil
		}
		q.tail = next
		tail = next
		next = next.next.Load()
	}

	if next != nil {
		q.tail = next
		return tail
	}

	head := q.head.Load()
	if tail != head {
		// A push is in the middle of linearizing (swap done, store not yet
		// visible). Report empty rather than spin; the pusher's store will
		// make the next Pop see it.
		return nil
	}

	// Queue looks empty from the consumer's side; splice the stub back in
	// so the next Push has somewhere to link, and re-check for a race.
	q.Push(&q.stub)
	next = tail.next.Load()
	if next != nil {
		q.tail = next
		return tail
	}
	return nil
}

// LooksEmpty is a non-destructive check: true means no Pop would currently
// succeed. Because Pop can transiently return nil while a Push is still
// linearizing, LooksEmpty can race with a concurrent Push the same way Pop
// can — callers that need a strict answer must Pop until nil instead.
func (q *Queue) LooksEmpty() bool {
	if q.tail != &q.stub {
		return false
	}
	return q.head.Load() == &q.stub
}
