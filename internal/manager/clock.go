package manager

import "sync/atomic"

// runtimeClock hands out runtime ids 1, 2, 3, ... in creation order.
// Ids are never reused within a session; Reset starts a new session.
type runtimeClock struct {
	seq atomic.Int64
}

// Next returns the next runtime id and advances the clock.
func (c *runtimeClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last id handed out, 0 if none.
func (c *runtimeClock) Current() int64 {
	return c.seq.Load()
}

// Reset restarts the sequence at zero.
func (c *runtimeClock) Reset() {
	c.seq.Store(0)
}
