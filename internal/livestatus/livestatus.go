// Package livestatus mirrors the active workout onto an externally rendered
// activity (a lock-screen widget, a dashboard tile) and keeps exactly one such
// activity per session.
package livestatus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Content is the payload shown by an activity. Times are sent as anchors so
// the renderer can count on its own without per-second pushes.
type Content struct {
	ElapsedAnchor        time.Time  `json:"elapsed_anchor"`
	IsPaused             bool       `json:"is_paused"`
	PausedElapsedSeconds int        `json:"paused_elapsed_seconds"`
	CurrentExerciseName  string     `json:"current_exercise_name,omitempty"`
	CurrentSetLabel      string     `json:"current_set_label,omitempty"`
	IsResting            bool       `json:"is_resting"`
	RestEndAnchor        *time.Time `json:"rest_end_anchor,omitempty"`
	CompletedCount       int        `json:"completed_count"`
	TotalCount           int        `json:"total_count"`
}

// Terminal returns the content shown after the session ends: frozen at the
// final elapsed time and not resting.
func (c Content) Terminal(finalElapsedSeconds int) Content {
	c.IsPaused = true
	c.PausedElapsedSeconds = finalElapsedSeconds
	c.IsResting = false
	c.RestEndAnchor = nil
	return c
}

// Handle references one rendered activity.
type Handle interface {
	ID() string
	SessionID() uuid.UUID
	Update(ctx context.Context, c Content) error
	// End stops the activity. When final is non-nil it is shown until
	// dismissAfter elapses; zero dismisses immediately.
	End(ctx context.Context, final *Content, dismissAfter time.Duration) error
}

// Surface is the platform facility that renders activities.
type Surface interface {
	// Active lists activities that have not been ended, oldest first.
	Active(ctx context.Context) ([]Handle, error)
	Request(ctx context.Context, sessionID uuid.UUID, c Content) (Handle, error)
}

// NopSurface is used where no ambient display exists. Every call succeeds
// and nothing is rendered.
type NopSurface struct{}

var _ Surface = NopSurface{}

func (NopSurface) Active(context.Context) ([]Handle, error) { return nil, nil }

func (NopSurface) Request(_ context.Context, sessionID uuid.UUID, _ Content) (Handle, error) {
	return nopHandle{id: uuid.NewString(), session: sessionID}, nil
}

type nopHandle struct {
	id      string
	session uuid.UUID
}

func (h nopHandle) ID() string { return h.id }

func (h nopHandle) SessionID() uuid.UUID { return h.session }

func (nopHandle) Update(context.Context, Content) error { return nil }

func (nopHandle) End(context.Context, *Content, time.Duration) error { return nil }
