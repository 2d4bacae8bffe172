// Package fault implements the trap facility the engine relies on to turn
// a handler panic into a captured stack trace handed to a recovery body.
package fault

import (
	"fmt"
	"runtime"

	"github.com/momentics/evservice/pool"
)

var pcBufferPool = pool.NewSyncPool(func() []uintptr {
	return make([]uintptr, 64)
})

// StackFrame is one human-readable frame of a captured stack trace.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

func (f StackFrame) String() string {
	return fmt.Sprintf("%s\n\t%s:%d", f.Function, f.File, f.Line)
}

// Facility invokes body, and on panic invokes recovery with the captured
// stack, in place of letting the panic propagate.
type Facility interface {
	Invoke(body func(), recovery func(stack []StackFrame))
}

// Recover is the default Facility: it uses recover() plus
// runtime.Callers/CallersFrames to build the stack trace.
type Recover struct {
	// SkipFrames trims the leading frames belonging to this package's own
	// recover machinery from the captured trace. Defaults to a value that
	// hides Invoke's own deferred closure.
	SkipFrames int
}

// NewRecover returns a Recover ready for use.
func NewRecover() *Recover {
	return &Recover{SkipFrames: 3}
}

// Invoke runs body. If body panics, Invoke recovers it, captures the
// current goroutine's stack, and calls recovery with it. A panic inside
// recovery itself is not caught — a fault handler that itself faults is
// an engine misuse, not a recoverable condition.
func (r *Recover) Invoke(body func(), recovery func(stack []StackFrame)) {
	defer func() {
		if rec := recover(); rec != nil {
			stack := captureStack(r.SkipFrames)
			recovery(append([]StackFrame{{Function: fmt.Sprintf("panic: %v", rec)}}, stack...))
		}
	}()
	body()
}

func captureStack(skip int) []StackFrame {
	pc := pcBufferPool.Get()
	defer pcBufferPool.Put(pc)

	n := runtime.Callers(skip, pc)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pc[:n])
	out := make([]StackFrame, 0, n)
	for {
		frame, more := frames.Next()
		out = append(out, StackFrame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more {
			break
		}
	}
	return out
}

// Strings renders a stack trace as plain lines, for logging when no
// tsegv handlers are registered.
func Strings(stack []StackFrame) []string {
	out := make([]string, len(stack))
	for i, f := range stack {
		out[i] = f.String()
	}
	return out
}
