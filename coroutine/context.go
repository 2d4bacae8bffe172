// Package coroutine implements a stackful-coroutine substitute atop a
// goroutine and a pair of unbuffered rendezvous channels. Go offers no
// user-level makecontext/swapcontext, so "swap into a stack" is expressed
// as "hand control to a goroutine and block until it hands control back".
package coroutine

import "fmt"

// EntryFunc is a coroutine body. It receives the Context it is running on,
// so it can call Yield to suspend itself back to the host.
type EntryFunc func(ctx *Context)

// Context is one coroutine's execution context: a goroutine plus the two
// channels used to pass control back and forth with whatever is currently
// swapping into or out of it.
type Context struct {
	stackSize int
	entry     EntryFunc

	resume  chan struct{} // host -> coroutine: proceed
	suspend chan struct{} // coroutine -> host: control returned

	started bool
	done    bool
}

// New allocates a coroutine context for entry, recording stackSize as a
// hint. Go grows goroutine stacks automatically; stackSize is not used to
// size anything, only exposed via StackSize for API parity.
func New(entry EntryFunc, stackSize int) *Context {
	return &Context{
		stackSize: stackSize,
		entry:     entry,
		resume:    make(chan struct{}),
		suspend:   make(chan struct{}),
	}
}

// StackSize returns the hint passed to New.
func (c *Context) StackSize() int {
	return c.stackSize
}

// Done reports whether the coroutine body has returned.
func (c *Context) Done() bool {
	return c.done
}

// Swap transfers control from the caller (the host, running on some
// worker thread) into this coroutine, and blocks until the coroutine
// either yields or returns. On the coroutine's first Swap, its goroutine
// is started; on subsequent swaps, the goroutine already exists, parked
// on its own resume channel inside Yield.
func (c *Context) Swap() {
	if c.done {
		panic(fmt.Sprintf("coroutine: Swap called on a completed context"))
	}
	if !c.started {
		c.started = true
		go func() {
			c.entry(c)
			c.done = true
			c.suspend <- struct{}{}
		}()
	} else {
		c.resume <- struct{}{}
	}
	<-c.suspend
}

// Yield suspends the calling coroutine back to whatever called Swap on
// it, and blocks until the next Swap resumes it. Must only be called from
// inside the coroutine's own entry function, on the goroutine started by
// Swap.
func (c *Context) Yield() {
	c.suspend <- struct{}{}
	<-c.resume
}
