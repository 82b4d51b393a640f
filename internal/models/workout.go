package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SetKind distinguishes warm-up sets from working sets.
type SetKind string

const (
	SetKindWarmup SetKind = "warmup"
	SetKindWork   SetKind = "work"
)

// IsValid reports whether k is a known set kind.
func (k SetKind) IsValid() bool {
	return k == SetKindWarmup || k == SetKindWork
}

// SessionStatus is the persisted lifecycle of a workout session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// Session is a row of the workout_sessions table.
type Session struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	WorkoutType string        `json:"workout_type"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     *time.Time    `json:"ended_at,omitempty"`
	DurationSec *int          `json:"duration_sec,omitempty"`
	Status      SessionStatus `json:"status"`
}

// WorkoutSet is a row of the workout_sets table. GroupKey identifies one
// exercise within the session and clusters its sets.
type WorkoutSet struct {
	ID             uuid.UUID  `json:"id"`
	SessionID      uuid.UUID  `json:"session_id"`
	ExerciseName   string     `json:"exercise_name"`
	GroupKey       string     `json:"group_key"`
	SetIndex       int        `json:"set_index"`
	TargetReps     int        `json:"target_reps"`
	ActualReps     *int       `json:"actual_reps,omitempty"`
	TargetWeightKg float64    `json:"target_weight_kg"`
	ActualWeightKg *float64   `json:"actual_weight_kg,omitempty"`
	Kind           SetKind    `json:"kind"`
	RestSeconds    int        `json:"rest_seconds"`
	IsCompleted    bool       `json:"is_completed"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Label renders the set for compact displays, e.g. "Set 2 · 8 × 100 kg" or
// "Warm-up 1 · 10 reps".
func (s WorkoutSet) Label(ordinal int) string {
	prefix := fmt.Sprintf("Set %d", ordinal)
	if s.Kind == SetKindWarmup {
		prefix = fmt.Sprintf("Warm-up %d", ordinal)
	}
	if s.TargetWeightKg > 0 {
		return fmt.Sprintf("%s · %d × %s kg", prefix, s.TargetReps, formatKg(s.TargetWeightKg))
	}
	return fmt.Sprintf("%s · %d reps", prefix, s.TargetReps)
}

// formatKg drops a trailing ".0" so whole plates read naturally.
func formatKg(kg float64) string {
	if kg == float64(int64(kg)) {
		return fmt.Sprintf("%d", int64(kg))
	}
	return fmt.Sprintf("%.1f", kg)
}
