package player

import "time"

// Counter is a monotonic high-resolution tick source.
type Counter interface {
	Counter() uint64
	Frequency() uint64 // ticks per second
}

// monotonicCounter counts nanoseconds on the runtime's monotonic clock.
type monotonicCounter struct{ start time.Time }

func (c monotonicCounter) Counter() uint64   { return uint64(time.Since(c.start)) }
func (c monotonicCounter) Frequency() uint64 { return uint64(time.Second) }

// Clock measures the time between render loop iterations.
type Clock struct {
	counter Counter
	last    uint64
	started bool
}

// NewClock creates a clock on counter, or on the monotonic clock when nil.
func NewClock(counter Counter) *Clock {
	if counter == nil {
		counter = monotonicCounter{start: time.Now()}
	}
	return &Clock{counter: counter}
}

// Tick returns the seconds elapsed since the previous call. The first call
// sets the baseline and returns 0.
func (c *Clock) Tick() float64 {
	now := c.counter.Counter()
	if !c.started {
		c.started = true
		c.last = now
		return 0
	}
	freq := c.counter.Frequency()
	if freq == 0 || now < c.last {
		c.last = now
		return 0
	}
	dt := float64(now-c.last) / float64(freq)
	c.last = now
	return dt
}
