package engine

import (
	"sync/atomic"

	"github.com/roach88/chr/internal/store"
)

// Clock hands out constraint handles for one run.
//
// Every constraint instance introduced into a run (initial fact or rule
// product) is stamped with a strictly increasing handle from this clock.
// This ensures:
//   - Two structurally equal constraints alive at different times have
//     different identities (propagation history stays sound)
//   - Handles are deterministic: the same program and facts produce the
//     same handles on every run
//
// Thread-safety: Clock uses atomic operations, but the engine is the only
// caller and runs on a single goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// NextID returns the next sequence number as a store handle.
func (c *Clock) NextID() store.ID {
	return store.ID(c.Next())
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
