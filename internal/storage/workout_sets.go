package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
)

// ListSets retrieves the sets of a session in set-index order.
func (db *DB) ListSets(ctx context.Context, sessionID uuid.UUID) ([]models.WorkoutSet, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, session_id, exercise_name, group_key, set_index, target_reps, actual_reps,
		 target_weight_kg, actual_weight_kg, kind, rest_seconds, is_completed, completed_at
		 FROM workout_sets
		 WHERE session_id = $1
		 ORDER BY set_index ASC, id ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutSet
	for rows.Next() {
		var s models.WorkoutSet
		if err := rows.Scan(&s.ID, &s.SessionID, &s.ExerciseName, &s.GroupKey, &s.SetIndex,
			&s.TargetReps, &s.ActualReps, &s.TargetWeightKg, &s.ActualWeightKg,
			&s.Kind, &s.RestSeconds, &s.IsCompleted, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// AppendSet inserts one set.
func (db *DB) AppendSet(ctx context.Context, s models.WorkoutSet) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workout_sets (id, session_id, exercise_name, group_key, set_index, target_reps,
		 actual_reps, target_weight_kg, actual_weight_kg, kind, rest_seconds, is_completed, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		s.ID, s.SessionID, s.ExerciseName, s.GroupKey, s.SetIndex, s.TargetReps,
		s.ActualReps, s.TargetWeightKg, s.ActualWeightKg, string(s.Kind), s.RestSeconds,
		s.IsCompleted, s.CompletedAt)
	if err != nil {
		return fmt.Errorf("inserting workout set: %w", err)
	}
	return nil
}

// RemoveSet deletes one set.
func (db *DB) RemoveSet(ctx context.Context, setID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workout_sets WHERE id = $1`, setID)
	if err != nil {
		return fmt.Errorf("deleting workout set: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set %s: %w", setID, ErrNotFound)
	}
	return nil
}

// MarkCompleted flags a set as done at the given instant.
func (db *DB) MarkCompleted(ctx context.Context, setID uuid.UUID, at time.Time) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workout_sets SET is_completed = TRUE, completed_at = $2 WHERE id = $1`,
		setID, at)
	if err != nil {
		return fmt.Errorf("completing workout set: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set %s: %w", setID, ErrNotFound)
	}
	return nil
}
