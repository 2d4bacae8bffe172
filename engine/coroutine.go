package engine

import (
	"github.com/momentics/evservice/coroutine"
	"github.com/momentics/evservice/event"
)

// CoroutineContext bundles a stackful coroutine with the engine plumbing
// needed to resume it later: its home worker (invariant: it may only run
// while some thread holds that worker) and the handler that re-enters it.
type CoroutineContext struct {
	*coroutine.Context
	engine     *Engine
	homeWorker int
	handler    *coroutineHandler
}

// HomeWorker returns the worker index this coroutine is bound to.
func (cc *CoroutineContext) HomeWorker() int { return cc.homeWorker }

// Engine returns the owning engine.
func (cc *CoroutineContext) Engine() *Engine { return cc.engine }

// Resume schedules the coroutine's next swap-in as an event on its home
// worker's queue. Safe to call from any goroutine, including the
// coroutine's own goroutine right before it yields. The engine never calls
// this on a coroutine's behalf: a coroutine that yields without something
// (itself, a timer, another strand) calling Resume stays suspended
// forever, by design — Yield is a real suspension point, not a
// round-trip-and-continue.
func (cc *CoroutineContext) Resume() {
	cc.engine.pushEvent(cc.homeWorker, event.New(cc.handler))
	cc.engine.notify(cc.homeWorker)
}

// Continue schedules the coroutine's own next swap-in and then yields,
// for the common case of a coroutine that wants to give other queued work
// on its worker a chance to run before picking up where it left off. It is
// exactly Resume followed by Yield; genuinely externally-driven
// resumption (waiting on a channel, a timer, another strand) should call
// Resume from outside once that trigger fires instead.
func (cc *CoroutineContext) Continue() {
	cc.Resume()
	cc.Yield()
}

// coroutineHandler re-enters a CoroutineContext each time its event is
// drained. Handle returns false (retain ownership) until the coroutine
// body returns.
type coroutineHandler struct {
	cc *CoroutineContext
}

func (h *coroutineHandler) Handle(tc event.ThreadContext) bool {
	h.cc.Swap()
	if h.cc.Done() {
		h.cc.engine.metrics.DecCoroutinesActive(h.cc.engine.metricsLabel())
		return true
	}
	return false
}

// spawnOnWorker creates and pushes the initial event for a new coroutine
// bound to worker widx.
func (e *Engine) spawnOnWorker(widx int, entry func(cc *CoroutineContext), stackSize int) *CoroutineContext {
	h := &coroutineHandler{}
	cc := &CoroutineContext{engine: e, homeWorker: widx, handler: h}
	cc.Context = coroutine.New(func(*coroutine.Context) { entry(cc) }, stackSize)
	h.cc = cc

	e.metrics.IncCoroutinesActive(e.metricsLabel())
	e.pushEvent(widx, event.New(h))
	e.notify(widx)
	return cc
}
