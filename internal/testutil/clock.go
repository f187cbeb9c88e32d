package testutil

import "sync"

// ScenarioClock is a settable block height for scenario runs.
//
// Unlike identity.HeightClock, ScenarioClock can be pinned to an exact
// height and reset, so the same scenario replays with identical heights.
// It satisfies identity.HeightSource.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ScenarioClock struct {
	mu     sync.Mutex
	start  int64
	height int64
}

// NewScenarioClock creates a clock at start. The first Advance returns
// start+1.
func NewScenarioClock(start int64) *ScenarioClock {
	return &ScenarioClock{start: start, height: start}
}

// Height returns the current height without advancing.
func (c *ScenarioClock) Height() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

// Advance moves the clock forward by one and returns the new height.
func (c *ScenarioClock) Advance() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height++
	return c.height
}

// Set pins the clock to h. Heights may move backwards; the registry only
// records them.
func (c *ScenarioClock) Set(h int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height = h
}

// Reset returns the clock to its start height.
func (c *ScenarioClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height = c.start
}
