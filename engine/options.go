package engine

import "time"

// Options tunes the idle/wake protocol and optional CPU pinning. Zero value
// is valid; normalize fills in the same defaults the original design would
// have compiled in as constants.
type Options struct {
	// SpinIterations bounds the aggressive-spin phase of the idle loop.
	SpinIterations int
	// PollIterations bounds the moderate-poll phase, each iteration sleeping
	// PollInterval before rechecking.
	PollIterations int
	// PollInterval is the sleep between moderate-poll iterations.
	PollInterval time.Duration
	// PinCPU optionally maps thread index -> logical CPU id. A thread index
	// absent from the map is left unpinned.
	PinCPU map[int]int
}

// DefaultOptions gives the three-phase idle loop its default magnitudes:
// aggressive spin under 100 iterations, moderate poll under 500 with
// microsecond-scale sleeps, then block on the condvar.
func DefaultOptions() Options {
	return Options{
		SpinIterations: 100,
		PollIterations: 500,
		PollInterval:   50 * time.Microsecond,
	}
}

func (o Options) normalize() Options {
	if o.SpinIterations <= 0 {
		o.SpinIterations = 100
	}
	if o.PollIterations <= 0 {
		o.PollIterations = 500
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 50 * time.Microsecond
	}
	return o
}
