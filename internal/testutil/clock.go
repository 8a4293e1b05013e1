// Package testutil holds deterministic helpers shared by the harness and
// package tests.
package testutil

// Clock hands out trace sequence numbers.
//
// The first call to Next returns 1. Clock is not safe for concurrent use;
// the store it observes is single-threaded.
type Clock struct {
	seq int64
}

// NewClock returns a clock whose next tick is 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the last value handed out, or 0 before the first tick.
func (c *Clock) Current() int64 {
	return c.seq
}

// Reset rewinds the clock so the same scenario can be replayed with
// identical sequence numbers.
func (c *Clock) Reset() {
	c.seq = 0
}
