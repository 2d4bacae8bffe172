package engine

import "github.com/momentics/evservice/event"

// Strand is a facade bound to one fixed worker index. Every Post, Spawn, or
// Async submitted through the same Strand serializes against every other
// submission through that Strand (and against anything else landing on the
// same worker), because a worker's queue is drained by exactly one thread
// at a time.
type Strand struct {
	engine *Engine
	worker int
}

// NewStrand pins a strand to a specific worker index. Callers that don't
// care which worker should use Engine.Spawn/Post/Async instead, which pick
// one via round robin.
func NewStrand(e *Engine, worker int) *Strand {
	return &Strand{engine: e, worker: worker}
}

// Worker returns the worker index this strand is bound to.
func (s *Strand) Worker() int { return s.worker }

// Post submits f to this strand's worker.
func (s *Strand) Post(f func(tc *ThreadContext)) {
	s.engine.postToWorker(s.worker, f)
}

// Async submits a caller-constructed event to this strand's worker.
func (s *Strand) Async(evt *event.Event) {
	s.engine.AsyncTo(s.worker, evt)
}

// Spawn starts a coroutine whose home worker is this strand's worker.
func (s *Strand) Spawn(entry func(cc *CoroutineContext), stackSize int) *CoroutineContext {
	return s.engine.spawnOnWorker(s.worker, entry, stackSize)
}
