package identity

import "sync/atomic"

// HeightClock is a monotonic block-height source.
//
// Heights only move forward. Safe for concurrent use.
type HeightClock struct {
	height atomic.Int64
}

// NewHeightClock creates a clock at height 0.
func NewHeightClock() *HeightClock {
	return &HeightClock{}
}

// NewHeightClockAt creates a clock starting at a specific height.
// Used after replay to resume from the last recorded height.
func NewHeightClockAt(start int64) *HeightClock {
	c := &HeightClock{}
	c.height.Store(start)
	return c
}

// Height returns the current height.
func (c *HeightClock) Height() int64 {
	return c.height.Load()
}

// Advance moves to the next height and returns it.
func (c *HeightClock) Advance() int64 {
	return c.height.Add(1)
}

// Observe raises the clock to h if h is ahead of it. Lower values are
// ignored.
func (c *HeightClock) Observe(h int64) {
	for {
		cur := c.height.Load()
		if h <= cur || c.height.CompareAndSwap(cur, h) {
			return
		}
	}
}
