package event

import (
	"reflect"
	"sync"
)

// MaxEngines bounds the number of engines that may exist within one process
// lifetime; it sizes the fallback per-engine pool registry array used by
// producer goroutines that are not associated with any engine thread.
const MaxEngines = 256

// Pool is a single-consumer free-list of Events wrapping one concrete
// Handler type T, with MPSC-safe Put from any goroutine. Get is guarded by
// a mutex so a Pool can also serve producers with no dedicated owning
// thread (Go goroutines, unlike the OS threads this design was modeled on,
// have no stable identity to make true single-consumer ownership free of
// synchronization).
type Pool[T Handler] struct {
	free  *Queue
	mu    sync.Mutex
	newFn func() T
}

// NewPool builds a pool that manufactures fresh handlers via newFn when its
// free-list is empty.
func NewPool[T Handler](newFn func() T) *Pool[T] {
	return &Pool[T]{free: NewQueue(), newFn: newFn}
}

// Get returns a recycled Event if one is available, otherwise allocates one
// from newFn. Pool allocation failure (newFn panicking) is not recovered
// here — per spec, allocation failure is fatal and should propagate.
func (p *Pool[T]) Get() *Event {
	p.mu.Lock()
	e := p.free.Pop()
	p.mu.Unlock()
	if e != nil {
		return e
	}
	e = &Event{pool: p}
	e.handler = p.newFn()
	return e
}

// put returns e to the free-list. Called by Event.Release; safe from any
// goroutine since Queue.Push is lock-free MPSC.
func (p *Pool[T]) put(e *Event) {
	p.free.Push(e)
}

// Registry maps concrete Handler types to their Pool, scoped to one owner
// (an engine thread, or an engine's fallback slot for unaffiliated
// producers).
type Registry struct {
	mu    sync.Mutex
	pools map[reflect.Type]any
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{pools: make(map[reflect.Type]any)}
}

// PoolFor returns the Registry's Pool for T, creating it with newFn on
// first use.
func PoolFor[T Handler](r *Registry, newFn func() T) *Pool[T] {
	var zero T
	t := reflect.TypeOf(zero)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.pools[t]; ok {
		return existing.(*Pool[T])
	}
	p := NewPool[T](newFn)
	r.pools[t] = p
	return p
}

var (
	engineRegistriesMu sync.Mutex
	engineRegistries   [MaxEngines]*Registry
)

// RegistryForEngine returns the process-wide fallback Registry for producer
// goroutines that have no owning thread-context, indexed by engine id. This
// is the Go-idiomatic stand-in for the "thread-local pool array indexed by
// engine id" described for OS-thread producers: goroutines carry no such
// identity, so unaffiliated producers share one registry per engine instead
// of one per (goroutine, engine).
func RegistryForEngine(engineID uint32) *Registry {
	if int(engineID) >= MaxEngines {
		panic("event: engine id exceeds MaxEngines")
	}
	engineRegistriesMu.Lock()
	defer engineRegistriesMu.Unlock()
	r := engineRegistries[engineID]
	if r == nil {
		r = NewRegistry()
		engineRegistries[engineID] = r
	}
	return r
}

// ReleaseEngine drops the fallback registry for engineID, allowing any
// pooled events still referenced by it to be garbage collected once their
// last holder releases them. Called from Engine teardown.
func ReleaseEngine(engineID uint32) {
	engineRegistriesMu.Lock()
	defer engineRegistriesMu.Unlock()
	if int(engineID) < MaxEngines {
		engineRegistries[engineID] = nil
	}
}
