//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific implementation for setting thread CPU affinity, via
// sched_setaffinity on the calling thread. No cgo: golang.org/x/sys/unix
// exposes the syscall directly.

package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// setAffinityPlatform sets thread affinity to a given CPU for Linux. The
// caller must have already called runtime.LockOSThread, or the affinity
// mask may end up applied to a different OS thread than the one the
// caller expects to keep running on.
func setAffinityPlatform(cpuID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)

	// tid 0 means "calling thread" to sched_setaffinity.
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity failed: %w", err)
	}
	return nil
}
