// Package api
// Author: momentics@gmail.com
//
// CPU affinity and thread pinning contract.

package api

// Affinity controls best-effort CPU pinning of the calling OS thread.
type Affinity interface {
	// Pin locks the calling OS thread to the given logical CPU.
	Pin(cpuID int) error
}
