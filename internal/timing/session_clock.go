package timing

import "time"

// ClockState is the lifecycle position of a SessionClock.
type ClockState string

const (
	ClockUninitialized ClockState = "uninitialized"
	ClockRunning       ClockState = "running"
	ClockPaused        ClockState = "paused"
	ClockEnded         ClockState = "ended"
)

// ClockSnapshot is the serializable part of a SessionClock.
type ClockSnapshot struct {
	IsPaused             bool
	StartAnchor          time.Time
	PausedElapsedSeconds int
}

// SessionClock tracks the elapsed time of one workout. Ended is terminal: a
// new workout needs a new clock.
//
// While running, elapsed time is now - startAnchor. Pausing freezes the value;
// resuming moves the anchor forward by the length of the pause, so the pause
// is drift-free even if no tick fired while it lasted.
type SessionClock struct {
	clock                Clock
	state                ClockState
	startAnchor          time.Time
	pausedElapsedSeconds int
}

// NewSessionClock returns an uninitialized clock.
func NewSessionClock(clock Clock) *SessionClock {
	if clock == nil {
		clock = SystemClock{}
	}
	return &SessionClock{clock: clock, state: ClockUninitialized}
}

// RestoreSessionClock rebuilds a clock from a snapshot.
func RestoreSessionClock(clock Clock, snap ClockSnapshot) *SessionClock {
	c := NewSessionClock(clock)
	c.startAnchor = snap.StartAnchor
	if snap.IsPaused {
		c.state = ClockPaused
		c.pausedElapsedSeconds = max(snap.PausedElapsedSeconds, 0)
	} else {
		c.state = ClockRunning
	}
	return c
}

// Start begins timing now. Only valid from uninitialized.
func (c *SessionClock) Start() bool {
	return c.StartAt(c.clock.Now())
}

// StartAt begins timing from a persisted start instant, used when a session
// is reopened without a usable resume snapshot.
func (c *SessionClock) StartAt(anchor time.Time) bool {
	if c.state != ClockUninitialized {
		return false
	}
	c.startAnchor = anchor
	c.pausedElapsedSeconds = 0
	c.state = ClockRunning
	return true
}

// Pause freezes elapsed time. It returns false if the clock was not running.
func (c *SessionClock) Pause() bool {
	if c.state != ClockRunning {
		return false
	}
	c.pausedElapsedSeconds = ElapsedSeconds(c.startAnchor, c.clock.Now())
	c.state = ClockPaused
	return true
}

// Resume restarts a paused clock from its frozen value.
func (c *SessionClock) Resume() bool {
	if c.state != ClockPaused {
		return false
	}
	c.startAnchor = c.clock.Now().Add(-time.Duration(c.pausedElapsedSeconds) * time.Second)
	c.state = ClockRunning
	return true
}

// ElapsedSeconds returns the frozen value while paused and the anchor-derived
// value otherwise. An uninitialized clock reads 0.
func (c *SessionClock) ElapsedSeconds() int {
	switch c.state {
	case ClockPaused:
		return c.pausedElapsedSeconds
	case ClockRunning:
		return ElapsedSeconds(c.startAnchor, c.clock.Now())
	case ClockEnded:
		return c.pausedElapsedSeconds
	default:
		return 0
	}
}

// End stops the clock for good and returns the final elapsed seconds. The
// second result is false when the clock was not running or paused.
func (c *SessionClock) End() (int, bool) {
	if c.state != ClockRunning && c.state != ClockPaused {
		return 0, false
	}
	final := c.ElapsedSeconds()
	c.pausedElapsedSeconds = final
	c.state = ClockEnded
	return final, true
}

// Discard ends the clock without producing a duration.
func (c *SessionClock) Discard() bool {
	if c.state == ClockEnded {
		return false
	}
	c.state = ClockEnded
	c.pausedElapsedSeconds = 0
	return true
}

// State reports the lifecycle position.
func (c *SessionClock) State() ClockState { return c.state }

// IsPaused reports whether the clock is paused.
func (c *SessionClock) IsPaused() bool { return c.state == ClockPaused }

// StartAnchor is the instant the session is considered to have started. While
// paused it is the anchor of the last running stretch.
func (c *SessionClock) StartAnchor() time.Time { return c.startAnchor }

// Snapshot returns the serializable state.
func (c *SessionClock) Snapshot() ClockSnapshot {
	return ClockSnapshot{
		IsPaused:             c.state == ClockPaused,
		StartAnchor:          c.startAnchor,
		PausedElapsedSeconds: c.pausedElapsedSeconds,
	}
}
