//go:build linux
// +build linux

package engine

import "golang.org/x/sys/unix"

// gettid returns the calling OS thread's id. Meaningful only after the
// calling goroutine has called runtime.LockOSThread and will never migrate
// off this OS thread again, which is exactly the lifetime of an engine
// worker thread's main-loop goroutine.
func gettid() int {
	return unix.Gettid()
}

const currentThreadContextSupported = true
