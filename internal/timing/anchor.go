// Package timing holds the time-anchored pieces of a live workout: the
// session clock, the rest countdown and the tick loops that redraw them.
//
// Nothing here counts ticks. Every duration is derived on demand from an
// absolute instant (an anchor), so a process that was suspended and missed
// ticks still reports the right value on the next read.
package timing

import "time"

// Clock supplies the current instant. Tests inject a manual clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// ElapsedSeconds returns whole seconds from startAnchor to now, clamped at 0
// when now is before the anchor (clock skew).
func ElapsedSeconds(startAnchor, now time.Time) int {
	d := now.Sub(startAnchor)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// RemainingSeconds returns whole seconds from now until endAnchor, rounded up,
// so the countdown reads 1 until the deadline is actually reached. It is
// exactly 0 at and after the deadline.
func RemainingSeconds(endAnchor, now time.Time) int {
	d := endAnchor.Sub(now)
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
