package engine

import "sync"

// ThreadContext is what a post/spawn handler receives: it identifies the
// thread and worker currently executing, and offers a way to route
// follow-up work back to the same worker (same-strand posting) or
// elsewhere in the engine.
type ThreadContext struct {
	threadIndex int
	workerIndex int
	engine      *Engine
}

// ThreadIndex returns the index of the thread currently executing.
func (tc *ThreadContext) ThreadIndex() int { return tc.threadIndex }

// WorkerIndex returns the index of the worker currently being drained.
func (tc *ThreadContext) WorkerIndex() int { return tc.workerIndex }

// Engine returns the owning engine.
func (tc *ThreadContext) Engine() *Engine { return tc.engine }

// PostSameStrand submits f to the worker currently being drained, so it
// runs strictly after the event whose handler called PostSameStrand, on
// the same worker (in-order, non-concurrent with respect to that worker).
func (tc *ThreadContext) PostSameStrand(f func(*ThreadContext)) {
	tc.engine.postToWorker(tc.workerIndex, f)
}

var (
	currentContextsMu sync.RWMutex
	currentContexts   = map[int]*ThreadContext{}
)

func registerCurrentThreadContext(tc *ThreadContext) {
	if !currentThreadContextSupported {
		return
	}
	tid := gettid()
	currentContextsMu.Lock()
	currentContexts[tid] = tc
	currentContextsMu.Unlock()
}

func unregisterCurrentThreadContext() {
	if !currentThreadContextSupported {
		return
	}
	tid := gettid()
	currentContextsMu.Lock()
	delete(currentContexts, tid)
	currentContextsMu.Unlock()
}

// lookupCurrentThreadContext returns the ThreadContext registered for the
// calling OS thread, or nil if the caller is not a registered engine
// worker thread (or the platform does not support the lookup).
func lookupCurrentThreadContext() *ThreadContext {
	if !currentThreadContextSupported {
		return nil
	}
	tid := gettid()
	currentContextsMu.RLock()
	defer currentContextsMu.RUnlock()
	return currentContexts[tid]
}
