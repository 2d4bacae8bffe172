// Package pool provides a generic sync.Pool wrapper for scratch objects
// that don't participate in the event lifecycle (see package event for
// that). Used by the fault facility to reuse stack-capture buffers across
// panics instead of allocating one per trap.
package pool
