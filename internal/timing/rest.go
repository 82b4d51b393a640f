package timing

import "time"

// RestEndReason records why a rest period finished.
type RestEndReason string

const (
	RestExpired RestEndReason = "expired"
	RestSkipped RestEndReason = "skipped"
	RestEnded   RestEndReason = "ended"
)

// RestTimer is the countdown between sets. It is independent of the session
// clock's pause state; the runtime ends rest before pausing.
type RestTimer struct {
	clock           Clock
	endAnchor       *time.Time
	durationSeconds int
}

// NewRestTimer returns an idle rest timer.
func NewRestTimer(clock Clock) *RestTimer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RestTimer{clock: clock}
}

// Start begins a countdown of durationSeconds. A zero or negative duration is
// a no-op and returns false. Starting while already resting replaces the
// deadline.
func (r *RestTimer) Start(durationSeconds int) bool {
	if durationSeconds <= 0 {
		return false
	}
	end := r.clock.Now().Add(time.Duration(durationSeconds) * time.Second)
	r.endAnchor = &end
	r.durationSeconds = durationSeconds
	return true
}

// Restore reinstates a countdown from a snapshot. A deadline already in the
// past leaves the timer idle and returns false.
func (r *RestTimer) Restore(endAnchor *time.Time, durationSeconds int) bool {
	r.clear()
	if endAnchor == nil {
		return false
	}
	if RemainingSeconds(*endAnchor, r.clock.Now()) == 0 {
		return false
	}
	end := *endAnchor
	r.endAnchor = &end
	r.durationSeconds = durationSeconds
	return true
}

// Tick recomputes the remaining time. When it reaches zero the timer ends
// itself and ended is true.
func (r *RestTimer) Tick() (remaining int, ended bool) {
	if r.endAnchor == nil {
		return 0, false
	}
	remaining = RemainingSeconds(*r.endAnchor, r.clock.Now())
	if remaining == 0 {
		r.clear()
		return 0, true
	}
	return remaining, false
}

// End clears the countdown. It returns false if no rest was running.
func (r *RestTimer) End() bool {
	if r.endAnchor == nil {
		return false
	}
	r.clear()
	return true
}

// Skip is End triggered by the user.
func (r *RestTimer) Skip() bool {
	return r.End()
}

// IsResting reports whether a countdown is running. It does not look at the
// clock; a stale deadline stays until the next Tick.
func (r *RestTimer) IsResting() bool { return r.endAnchor != nil }

// RemainingSeconds is the countdown value, never negative.
func (r *RestTimer) RemainingSeconds() int {
	if r.endAnchor == nil {
		return 0
	}
	return RemainingSeconds(*r.endAnchor, r.clock.Now())
}

// EndAnchor returns a copy of the deadline, or nil when idle.
func (r *RestTimer) EndAnchor() *time.Time {
	if r.endAnchor == nil {
		return nil
	}
	end := *r.endAnchor
	return &end
}

// DurationSeconds is the length of the current countdown.
func (r *RestTimer) DurationSeconds() int {
	if r.endAnchor == nil {
		return 0
	}
	return r.durationSeconds
}

func (r *RestTimer) clear() {
	r.endAnchor = nil
	r.durationSeconds = 0
}
