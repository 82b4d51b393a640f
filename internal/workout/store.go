package workout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

var (
	_ Store = (*storage.DB)(nil)
	_ Store = (*storage.Memory)(nil)
)

var (
	// ErrNoActiveSession is returned by mutations when no session is open.
	ErrNoActiveSession = errors.New("no active session")
	// ErrSessionActive is returned when opening a session while another runs.
	ErrSessionActive = errors.New("another session is active")
	// ErrSessionNotFound is returned when the session record does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed is returned when opening a session that already ended.
	ErrSessionClosed = errors.New("session already completed")
	// ErrSetNotFound is returned for set IDs not in the active session.
	ErrSetNotFound = errors.New("set not found")
)

// Store persists session and set records. Implementations return an error
// matching storage.ErrNotFound for missing rows.
type Store interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	// SaveSession inserts or updates the session record.
	SaveSession(ctx context.Context, s models.Session) error
	// DeleteSession removes the session and its sets.
	DeleteSession(ctx context.Context, id uuid.UUID) error
	ListSets(ctx context.Context, sessionID uuid.UUID) ([]models.WorkoutSet, error)
	AppendSet(ctx context.Context, set models.WorkoutSet) error
	RemoveSet(ctx context.Context, setID uuid.UUID) error
	MarkCompleted(ctx context.Context, setID uuid.UUID, at time.Time) error
}
