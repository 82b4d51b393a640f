package mcp

import (
	"context"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/livestatus"
	"github.com/claude/liftlog/internal/workout"
)

// SessionControl abstracts the session runtime for MCP tools. Both Local (in
// process) and HTTPClient (remote via REST API) satisfy this interface.
type SessionControl interface {
	State(ctx context.Context) (workout.State, error)
	LiveActivities(ctx context.Context) ([]livestatus.Activity, error)
	Pause(ctx context.Context) (workout.State, error)
	Resume(ctx context.Context) (workout.State, error)
	CompleteSet(ctx context.Context, setID uuid.UUID) (workout.State, error)
	SelectExercise(ctx context.Context, groupKey string) (workout.State, error)
	SkipRest(ctx context.Context) (workout.State, error)
}

// Local drives a runtime in the same process.
type Local struct {
	rt    *workout.Runtime
	board *livestatus.Board
}

// Compile-time check: Local satisfies SessionControl.
var _ SessionControl = (*Local)(nil)

// NewLocal wraps rt. board may be nil when live status is not rendered in
// process.
func NewLocal(rt *workout.Runtime, board *livestatus.Board) *Local {
	return &Local{rt: rt, board: board}
}

func (l *Local) State(context.Context) (workout.State, error) {
	return l.rt.CurrentState(), nil
}

func (l *Local) LiveActivities(context.Context) ([]livestatus.Activity, error) {
	if l.board == nil {
		return []livestatus.Activity{}, nil
	}
	return l.board.List(), nil
}

func (l *Local) Pause(ctx context.Context) (workout.State, error) {
	return l.after(l.rt.Pause(ctx))
}

func (l *Local) Resume(ctx context.Context) (workout.State, error) {
	return l.after(l.rt.Resume(ctx))
}

func (l *Local) CompleteSet(ctx context.Context, setID uuid.UUID) (workout.State, error) {
	return l.after(l.rt.CompleteSet(ctx, setID))
}

func (l *Local) SelectExercise(ctx context.Context, groupKey string) (workout.State, error) {
	if groupKey == "" {
		return l.after(l.rt.ClearSelection(ctx))
	}
	_, err := l.rt.SelectGroup(ctx, groupKey)
	return l.after(err)
}

func (l *Local) SkipRest(ctx context.Context) (workout.State, error) {
	return l.after(l.rt.SkipRest(ctx))
}

func (l *Local) after(err error) (workout.State, error) {
	if err != nil {
		return workout.State{}, err
	}
	return l.rt.CurrentState(), nil
}
