// Package engine implements the scheduling and dispatch engine: worker
// threads, the workshop exclusion array, the thread-to-worker prior/minor
// assignment policy, the idle/wake protocol, and the strand/coroutine
// facades built on top of the event and worker packages.
package engine

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/evservice/affinity"
	"github.com/momentics/evservice/api"
	"github.com/momentics/evservice/control"
	"github.com/momentics/evservice/core/concurrency"
	"github.com/momentics/evservice/event"
	"github.com/momentics/evservice/fault"
	"github.com/momentics/evservice/logging"
	"github.com/momentics/evservice/threaddata"
	"github.com/momentics/evservice/worker"
)

var nextEngineID atomic.Uint32

func allocEngineID() (uint32, error) {
	id := nextEngineID.Add(1) - 1
	if id >= event.MaxEngines {
		return 0, api.ErrTooManyEngines
	}
	return id, nil
}

// Engine owns a fixed-size set of workers, a fixed-size set of threads, the
// workshop, and the round-robin cursor used to pick a worker for
// unbound submissions.
type Engine struct {
	id    uint32
	label string

	threadNum int
	workerNum int

	workers          []*worker.Worker
	workshop         *worker.Workshop
	threads          []*threaddata.ThreadData
	threadRegistries []*event.Registry
	threadRegMu      sync.Mutex
	priorWorkers     [][]int
	minorWorkers     [][]int

	logger  logging.Logger
	fault   fault.Facility
	metrics *control.MetricsRegistry
	control *engineControl
	opts    Options

	executorOnce sync.Once
	executor     *concurrency.Executor

	cursor  atomic.Uint64
	stopped atomic.Bool
	running atomic.Bool
	wg      sync.WaitGroup
}

// New constructs an engine. threadNum < 1 is coerced to 1; workerNum <
// threadNum is raised to threadNum. Returns an error if the process-wide
// engine id space (event.MaxEngines) is exhausted.
func New(threadNum, workerNum int, logger logging.Logger, opts ...Options) (*Engine, error) {
	if threadNum < 1 {
		threadNum = 1
	}
	if workerNum < threadNum {
		workerNum = threadNum
	}
	id, err := allocEngineID()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Noop{}
	}
	o := DefaultOptions()
	if len(opts) > 0 {
		o = opts[0]
	}
	o = o.normalize()

	workers := make([]*worker.Worker, workerNum)
	for i := range workers {
		workers[i] = worker.New(i)
	}
	threads := make([]*threaddata.ThreadData, threadNum)
	for i := range threads {
		threads[i] = threaddata.New(i)
	}
	regs := make([]*event.Registry, threadNum)
	for i := range regs {
		regs[i] = event.NewRegistry()
	}

	priors, minors := computeWorkerAssignment(threadNum, workerNum)

	e := &Engine{
		id:               id,
		label:            fmt.Sprintf("%d", id),
		threadNum:        threadNum,
		workerNum:        workerNum,
		workers:          workers,
		workshop:         worker.NewWorkshop(workers),
		threads:          threads,
		threadRegistries: regs,
		priorWorkers:     priors,
		minorWorkers:     minors,
		logger:           logger,
		fault:            fault.NewRecover(),
		metrics:          control.NewMetricsRegistry(),
		opts:             o,
	}
	e.control = newEngineControl(e)
	return e, nil
}

// computeWorkerAssignment returns, for each thread, its prior workers
// (worker index mod thread count == thread index) and its minor workers
// (everything else), so a thread's drain pass can favor its own workers
// before falling back to scavenging others.
func computeWorkerAssignment(threadNum, workerNum int) (priors, minors [][]int) {
	priors = make([][]int, threadNum)
	minors = make([][]int, threadNum)
	for t := 0; t < threadNum; t++ {
		for w := 0; w < workerNum; w++ {
			if w%threadNum == t {
				priors[t] = append(priors[t], w)
			} else {
				minors[t] = append(minors[t], w)
			}
		}
	}
	return priors, minors
}

// ID returns the engine's process-unique id.
func (e *Engine) ID() uint32 { return e.id }

// ThreadNum returns the configured thread count.
func (e *Engine) ThreadNum() int { return e.threadNum }

// WorkerNum returns the configured worker count.
func (e *Engine) WorkerNum() int { return e.workerNum }

// Logger returns the engine's logger.
func (e *Engine) Logger() logging.Logger { return e.logger }

// SetMetrics overrides the metrics registry New created by default. A nil
// argument is ignored: the engine always keeps a non-nil registry.
func (e *Engine) SetMetrics(m *control.MetricsRegistry) {
	if m == nil {
		return
	}
	e.metrics = m
	if e.control != nil {
		e.control.metrics = m
	}
}

// Control returns the engine's control-plane surface: config snapshot,
// live stats (metrics plus debug probes), reload hooks, and the ability to
// register further debug probes.
func (e *Engine) Control() api.Control { return e.control }

// SetFault overrides the default recover-based fault facility.
func (e *Engine) SetFault(f fault.Facility) { e.fault = f }

func (e *Engine) metricsLabel() string { return e.label }

// CurrentThreadContext returns the ThreadContext for the calling OS
// thread, or nil if the caller is not an engine worker thread.
func CurrentThreadContext() *ThreadContext {
	return lookupCurrentThreadContext()
}

func (e *Engine) nextWorker() int {
	return int(e.cursor.Add(1)-1) % e.workerNum
}

func (e *Engine) pushEvent(widx int, evt *event.Event) {
	e.workers[widx].Push(evt)
}

func (e *Engine) notify(widx int) {
	e.threads[widx%e.threadNum].Notify()
}

// funcHandler adapts a plain post handler into an event.Handler that
// always auto-releases: post never lets a handler retain ownership.
type funcHandler func(tc *ThreadContext)

func (f funcHandler) Handle(tc event.ThreadContext) bool {
	f(tc.(*ThreadContext))
	return true
}

// Post submits f for execution on a round-robin-selected worker.
func (e *Engine) Post(f func(tc *ThreadContext)) {
	e.postToWorker(e.nextWorker(), f)
}

func (e *Engine) postToWorker(widx int, f func(tc *ThreadContext)) {
	e.pushEvent(widx, event.New(funcHandler(f)))
	e.notify(widx)
	e.metrics.IncPosts(e.metricsLabel())
}

// Async submits a caller-constructed event, ownership transferred, to a
// round-robin-selected worker.
func (e *Engine) Async(evt *event.Event) {
	e.AsyncTo(e.nextWorker(), evt)
}

// AsyncTo submits evt to a specific worker index.
func (e *Engine) AsyncTo(widx int, evt *event.Event) {
	e.pushEvent(widx, evt)
	e.notify(widx)
	e.metrics.IncPosts(e.metricsLabel())
}

// Spawn submits a coroutine body for execution on a round-robin-selected
// worker (its home worker for the coroutine's lifetime).
func (e *Engine) Spawn(entry func(cc *CoroutineContext), stackSize int) *CoroutineContext {
	return e.spawnOnWorker(e.nextWorker(), entry, stackSize)
}

// TStart registers f to run on every thread before it enters its dispatch
// loop.
func (e *Engine) TStart(f func(threadIndex int)) {
	for _, td := range e.threads {
		td.TStart.Add(threaddata.StartFunc(f))
	}
}

// TExit registers f to run on every thread after its dispatch loop exits.
func (e *Engine) TExit(f func(threadIndex int)) {
	for _, td := range e.threads {
		td.TExit.Add(threaddata.ExitFunc(f))
	}
}

// TSegv registers f to run on every thread's fault-recovery path.
func (e *Engine) TSegv(f func(threadIndex int, stack []string)) {
	for _, td := range e.threads {
		td.TSegv.Add(threaddata.FaultFunc(f))
	}
}

// MakeEvent allocates an event wrapping a T from whichever pool the
// calling context owns: the current engine thread's pool if called from
// inside a handler, otherwise the engine's shared fallback pool for
// unaffiliated producers.
func MakeEvent[T event.Handler](e *Engine, newFn func() T) *event.Event {
	reg := e.registryFor(lookupCurrentThreadContext())
	return event.PoolFor[T](reg, newFn).Get()
}

func (e *Engine) registryFor(tc *ThreadContext) *event.Registry {
	if tc != nil && tc.engine == e && tc.threadIndex < len(e.threadRegistries) {
		e.threadRegMu.Lock()
		defer e.threadRegMu.Unlock()
		return e.threadRegistries[tc.threadIndex]
	}
	return event.RegistryForEngine(e.id)
}

// scavengeExecutor lazily starts the single-worker auxiliary executor used
// to run pool-scavenging maintenance work off a thread's own exit path.
func (e *Engine) scavengeExecutor() *concurrency.Executor {
	e.executorOnce.Do(func() {
		e.executor = concurrency.NewExecutor(1)
	})
	return e.executor
}

// Run launches all threads and blocks until every thread has exited. A
// thread exits after it observes Stop, or after its fault recovery runs;
// either way it finishes its texit drain first.
func (e *Engine) Run() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	e.wg.Add(e.threadNum)
	for t := 0; t < e.threadNum; t++ {
		go e.threadMain(t)
	}
	e.wg.Wait()
}

// Stop signals every thread to shut down. Submissions after Stop are
// accepted but not guaranteed to run.
func (e *Engine) Stop() {
	if !e.stopped.CompareAndSwap(false, true) {
		return
	}
	for _, td := range e.threads {
		td.Stop()
	}
}

// Close releases residual queued events (without executing their
// handlers) and frees the engine's fallback pool registry. Call after Run
// has returned.
func (e *Engine) Close() {
	for _, w := range e.workers {
		w.DrainDiscard()
	}
	if e.executor != nil {
		e.executor.Close()
	}
	event.ReleaseEngine(e.id)
}

// Shutdown implements api.GracefulShutdown: it stops all threads, waits
// for them to exit, and releases residual queued events. Safe to call
// even if Run was never started.
func (e *Engine) Shutdown() error {
	e.Stop()
	e.wg.Wait()
	e.Close()
	return nil
}

func (e *Engine) threadMain(t int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer e.wg.Done()

	if cpu, ok := e.opts.PinCPU[t]; ok {
		if err := affinity.Pin(cpu); err != nil {
			e.logger.Debug("engine: affinity pin failed for thread %d on cpu %d: %v", t, cpu, err)
		}
	}

	tc := &ThreadContext{threadIndex: t, engine: e}
	registerCurrentThreadContext(tc)
	defer unregisterCurrentThreadContext()

	td := e.threads[t]

	e.fault.Invoke(func() {
		for _, f := range td.TStart.DrainAll() {
			f(t)
		}
		e.dispatchLoop(t, tc, td)
	}, func(stack []fault.StackFrame) {
		e.handleFault(t, td, stack)
	})

	e.fault.Invoke(func() {
		for _, f := range td.TExit.DrainAll() {
			f(t)
		}
	}, func(stack []fault.StackFrame) {
		e.logger.Error("engine: texit handler failed on thread %d: %v", t, fault.Strings(stack))
	})

	// Free this thread's accumulated per-type event pools off its own exit
	// path: best-effort, a busy or already-closing executor just skips it.
	if err := e.scavengeExecutor().Submit(func() {
		e.threadRegMu.Lock()
		e.threadRegistries[t] = event.NewRegistry()
		e.threadRegMu.Unlock()
	}); err != nil {
		e.logger.Debug("engine: scavenge submit skipped for thread %d: %v", t, err)
	}
}

func (e *Engine) handleFault(t int, td *threaddata.ThreadData, stack []fault.StackFrame) {
	handlers := td.TSegv.DrainAll()
	lines := fault.Strings(stack)
	if len(handlers) == 0 {
		e.logger.Error("engine: thread %d faulted:\n%s", t, joinLines(lines))
		return
	}
	for _, f := range handlers {
		f(t, lines)
	}
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

// dispatchLoop drains a thread's priors every pass, and its minors only
// when a pass's priors handled nothing; when a pass handles nothing at all
// and the stop flag is not set, it idles (spin, then poll, then block)
// before trying again. The wakeup counter is reset at the start of each
// pass, so a notify that arrives during the pass is still seen by the
// idle phases that follow; priors are scanned on every pass regardless of
// the counter's value, so the counter only controls how eagerly the thread
// checks, never whether it checks. Gating minors on an idle priors pass only changes when a thread
// reaches for other threads' workers within one pass — the next pass (or
// the next notify-triggered wake) still revisits every assigned worker.
func (e *Engine) dispatchLoop(t int, tc *ThreadContext, td *threaddata.ThreadData) {
	for {
		// Reset before the pass, not after it: a notify that lands while the
		// pass runs must stay counted so the idle phases see it.
		td.Reset()
		handled := e.drainAssigned(t, tc)
		if handled > 0 {
			continue
		}
		if td.Stopped() {
			e.drainAssigned(t, tc)
			return
		}
		e.idle(td)
		e.metrics.IncWakeups(e.metricsLabel())
	}
}

// drainAssigned drains thread t's priors first; it only tries t's minors
// if the priors pass handled nothing this round, matching the fairness
// policy that a thread only reaches for other threads' workers once its
// own are confirmed idle.
func (e *Engine) drainAssigned(t int, tc *ThreadContext) int {
	handled := e.drainSet(e.priorWorkers[t], tc)
	if handled == 0 {
		handled += e.drainSet(e.minorWorkers[t], tc)
	}
	return handled
}

func (e *Engine) drainSet(workers []int, tc *ThreadContext) int {
	handled := 0
	for _, widx := range workers {
		w := e.workshop.TryAcquire(widx)
		if w == nil {
			e.metrics.IncContention(e.metricsLabel())
			continue
		}
		tc.workerIndex = widx
		n := w.Drain(tc)
		handled += n
		if n > 0 {
			e.metrics.AddDispatches(e.metricsLabel(), float64(n))
		}
		empty := w.Empty()
		e.workshop.Release(w)
		if !empty {
			// A push may have landed between the last empty Pop and this
			// release; re-notify so it never goes unclaimed.
			e.notify(widx)
		}
	}
	return handled
}

func (e *Engine) idle(td *threaddata.ThreadData) {
	for i := 0; i < e.opts.SpinIterations; i++ {
		if td.Peek() > 0 || td.Stopped() {
			return
		}
		runtime.Gosched()
	}
	for i := 0; i < e.opts.PollIterations; i++ {
		if td.Peek() > 0 || td.Stopped() {
			return
		}
		time.Sleep(e.opts.PollInterval)
	}
	td.Wait()
}
