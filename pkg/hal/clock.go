package hal

import (
	"sync"
	"time"
)

// Timebase reports time elapsed since the clock started.
type Timebase interface {
	Elapsed() time.Duration
}

// SystemClock is a microsecond counter backed by the Go monotonic clock.
// Like an MCU timer it wraps around after 2^32 microseconds.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a clock starting at zero.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Micros returns microseconds since the clock started, truncated to 32 bits.
func (c *SystemClock) Micros() uint32 {
	return uint32(time.Since(c.start) / time.Microsecond)
}

// Elapsed returns time since the clock started.
func (c *SystemClock) Elapsed() time.Duration {
	return time.Since(c.start)
}

// Sleep blocks for d.
func (c *SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// FakeClock is a manually driven clock for tests and simulations.
//
// Every Micros call returns the current time and then advances it by Step,
// which models the time spent between two reads of the counter. Sleep
// advances the clock without blocking.
type FakeClock struct {
	mu    sync.Mutex
	now   uint32
	step  uint32
	slept time.Duration
	calls int
}

// NewFakeClock creates a clock at start advancing by step on every read.
func NewFakeClock(start uint32, step time.Duration) *FakeClock {
	return &FakeClock{
		now:  start,
		step: uint32(step / time.Microsecond),
	}
}

// Micros returns the current time and advances the clock by the step.
func (c *FakeClock) Micros() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now
	c.now += c.step
	c.calls++
	return t
}

// Now returns the current time without advancing the clock.
func (c *FakeClock) Now() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Elapsed returns the current time as a duration since zero.
func (c *FakeClock) Elapsed() time.Duration {
	return time.Duration(c.Now()) * time.Microsecond
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += uint32(d / time.Microsecond)
}

// Sleep advances the clock by d and records the total time slept.
func (c *FakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += uint32(d / time.Microsecond)
	c.slept += d
}

// Slept returns the total duration passed to Sleep.
func (c *FakeClock) Slept() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slept
}

// Calls returns the number of Micros calls.
func (c *FakeClock) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
