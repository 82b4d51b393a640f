package workout

import (
	"context"

	"github.com/claude/liftlog/internal/timing"
)

// Subscribe returns a channel receiving every event. Slow subscribers miss
// events rather than block the runtime.
func (r *Runtime) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	r.mu.Lock()
	r.subs = append(r.subs, ch)
	r.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (r *Runtime) Unsubscribe(ch <-chan Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, sub := range r.subs {
		if sub == ch {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

func (r *Runtime) emitLocked(kind EventKind, reason timing.RestEndReason) {
	r.emitStateLocked(kind, r.stateLocked(), reason)
}

func (r *Runtime) emitStateLocked(kind EventKind, st State, reason timing.RestEndReason) {
	if len(r.subs) == 0 {
		return
	}
	ev := Event{Kind: kind, State: st, Reason: reason, At: r.wall.Now()}
	for _, ch := range r.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Attach starts the elapsed-time and rest tick loops. They run while a
// session is active and stop on End, Discard or Detach. ctx bounds the loops
// and is used for the store calls they trigger.
func (r *Runtime) Attach(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attached {
		return
	}
	r.attached = true
	r.attachCtx = ctx
	r.startTickersLocked()
}

// Detach stops the tick loops and waits for them to exit.
func (r *Runtime) Detach() {
	r.mu.Lock()
	r.attached = false
	r.mu.Unlock()
	r.stopTickers()
}

// Ticking reports whether the tick loops are running.
func (r *Runtime) Ticking() bool {
	return r.clockTicker.Running() && r.restTicker.Running()
}

func (r *Runtime) startTickersLocked() {
	if !r.attached || r.session == nil {
		return
	}
	r.clockTicker.Start(r.attachCtx)
	r.restTicker.Start(r.attachCtx)
}

// stopTickers must be called without holding mu: a loop may be waiting for
// the lock inside its callback.
func (r *Runtime) stopTickers() {
	r.clockTicker.Stop()
	r.restTicker.Stop()
}

func (r *Runtime) onClockTick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickLocked(r.attachCtx)
}

// onRestTick drives the countdown. It does nothing unless resting.
func (r *Runtime) onRestTick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil || !r.rest.IsResting() {
		return
	}
	if !r.expireRestLocked(r.attachCtx) {
		r.emitLocked(EventRestTick, "")
	}
}
