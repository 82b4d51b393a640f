package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/liftlog/internal/models"
)

// GetSession retrieves one session by ID.
func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var s models.Session
	err := db.Pool.QueryRow(ctx,
		`SELECT id, name, workout_type, started_at, ended_at, duration_sec, status
		 FROM workout_sessions
		 WHERE id = $1`,
		id).Scan(&s.ID, &s.Name, &s.WorkoutType, &s.StartedAt, &s.EndedAt, &s.DurationSec, &s.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &s, nil
}

// SaveSession inserts the session or updates its mutable columns.
func (db *DB) SaveSession(ctx context.Context, s models.Session) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workout_sessions (id, name, workout_type, started_at, ended_at, duration_sec, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name,
		     workout_type = EXCLUDED.workout_type,
		     ended_at = EXCLUDED.ended_at,
		     duration_sec = EXCLUDED.duration_sec,
		     status = EXCLUDED.status`,
		s.ID, s.Name, s.WorkoutType, s.StartedAt, s.EndedAt, s.DurationSec, string(s.Status))
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// DeleteSession removes a session; its sets go with it (ON DELETE CASCADE).
func (db *DB) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workout_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListSessions returns the most recently started sessions, optionally only
// those with the given status.
func (db *DB) ListSessions(ctx context.Context, status models.SessionStatus, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, workout_type, started_at, ended_at, duration_sec, status
		 FROM workout_sessions
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY started_at DESC
		 LIMIT $2`,
		string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.Name, &s.WorkoutType, &s.StartedAt, &s.EndedAt, &s.DurationSec, &s.Status); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
