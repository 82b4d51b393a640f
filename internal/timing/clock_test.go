package timing

import "time"

// manualClock is a Clock whose time only moves when the test advances it.
type manualClock struct {
	now time.Time
}

func newManualClock(t0 time.Time) *manualClock {
	return &manualClock{now: t0}
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var t0 = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
