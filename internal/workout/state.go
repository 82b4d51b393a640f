package workout

import (
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/livestatus"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/progression"
	"github.com/claude/liftlog/internal/timing"
)

// State is a point-in-time view of the runtime for the UI layer.
type State struct {
	Active               bool               `json:"active"`
	SessionID            uuid.UUID          `json:"session_id"`
	SessionName          string             `json:"session_name,omitempty"`
	WorkoutType          string             `json:"workout_type,omitempty"`
	StartAnchor          time.Time          `json:"start_anchor"`
	ElapsedSeconds       int                `json:"elapsed_seconds"`
	IsPaused             bool               `json:"is_paused"`
	IsResting            bool               `json:"is_resting"`
	RestRemainingSeconds int                `json:"rest_remaining_seconds"`
	RestDurationSeconds  int                `json:"rest_duration_seconds"`
	RestEndAnchor        *time.Time         `json:"rest_end_anchor,omitempty"`
	Status               progression.Status `json:"status,omitempty"`
	CurrentSet           *models.WorkoutSet `json:"current_set,omitempty"`
	CurrentSetLabel      string             `json:"current_set_label,omitempty"`
	CurrentExerciseName  string             `json:"current_exercise_name,omitempty"`
	CurrentGroupKey      string             `json:"current_group_key,omitempty"`
	CurrentGroupIndex    int                `json:"current_group_index"`
	SelectedGroupKey     string             `json:"selected_group_key,omitempty"`
	IsWorkoutComplete    bool               `json:"is_workout_complete"`
	CompletedCount       int                `json:"completed_count"`
	TotalCount           int                `json:"total_count"`
	Exercises            []Exercise         `json:"exercises,omitempty"`
}

// Exercise summarizes one group of sets.
type Exercise struct {
	GroupKey  string              `json:"group_key"`
	Name      string              `json:"name"`
	Completed int                 `json:"completed"`
	Total     int                 `json:"total"`
	Sets      []models.WorkoutSet `json:"sets"`
}

// EventKind identifies what changed.
type EventKind string

const (
	EventStateChanged     EventKind = "state_changed"
	EventTick             EventKind = "tick"
	EventRestTick         EventKind = "rest_tick"
	EventRestEnded        EventKind = "rest_ended"
	EventSessionEnded     EventKind = "session_ended"
	EventSessionDiscarded EventKind = "session_discarded"
)

// Event is delivered to subscribers after every change and tick.
type Event struct {
	Kind   EventKind
	State  State
	Reason timing.RestEndReason
	At     time.Time
}

func (r *Runtime) stateLocked() State {
	if r.session == nil {
		return State{CurrentGroupIndex: -1}
	}

	p := r.progress
	st := State{
		Active:               true,
		SessionID:            r.session.ID,
		SessionName:          r.session.Name,
		WorkoutType:          r.session.WorkoutType,
		StartAnchor:          r.clock.StartAnchor(),
		ElapsedSeconds:       r.clock.ElapsedSeconds(),
		IsPaused:             r.clock.IsPaused(),
		IsResting:            r.rest.IsResting(),
		RestRemainingSeconds: r.rest.RemainingSeconds(),
		RestDurationSeconds:  r.rest.DurationSeconds(),
		RestEndAnchor:        r.rest.EndAnchor(),
		Status:               p.Status,
		CurrentExerciseName:  p.ExerciseName,
		CurrentGroupKey:      p.GroupKey,
		CurrentGroupIndex:    p.GroupIndex,
		SelectedGroupKey:     r.selector.Selected(),
		IsWorkoutComplete:    p.Status == progression.StatusWorkoutComplete,
		CompletedCount:       p.CompletedCount,
		TotalCount:           p.TotalCount,
	}
	if p.CurrentSet != nil {
		set := *p.CurrentSet
		st.CurrentSet = &set
		st.CurrentSetLabel = set.Label(p.SetOrdinal)
	}

	for _, g := range r.groups {
		ex := Exercise{
			GroupKey: g.Key,
			Name:     g.ExerciseName,
			Total:    len(g.Sets),
			Sets:     append([]models.WorkoutSet(nil), g.Sets...),
		}
		for _, s := range g.Sets {
			if s.IsCompleted {
				ex.Completed++
			}
		}
		st.Exercises = append(st.Exercises, ex)
	}
	return st
}

func (r *Runtime) contentLocked() livestatus.Content {
	c := livestatus.Content{
		ElapsedAnchor:  r.clock.StartAnchor(),
		IsPaused:       r.clock.IsPaused(),
		IsResting:      r.rest.IsResting(),
		RestEndAnchor:  r.rest.EndAnchor(),
		CompletedCount: r.progress.CompletedCount,
		TotalCount:     r.progress.TotalCount,
	}
	if c.IsPaused {
		c.PausedElapsedSeconds = r.clock.ElapsedSeconds()
	}
	c.CurrentExerciseName = r.progress.ExerciseName
	if set := r.progress.CurrentSet; set != nil {
		c.CurrentSetLabel = set.Label(r.progress.SetOrdinal)
	}
	return c
}
