// Package snapshot persists the live state of the active workout so it can be
// restored after the process or the UI is relaunched.
//
// A store holds at most one snapshot. It is overwritten on every mutation and
// discarded when the session ends, is discarded, or no longer matches the
// session being opened.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Version is the current encoding version. Snapshots written with any other
// version are treated as absent.
const Version = 1

// ErrCorrupt is returned when a stored snapshot cannot be decoded.
var ErrCorrupt = errors.New("corrupt snapshot")

// Snapshot is the resumable state of one session.
type Snapshot struct {
	Version              int        `json:"version"`
	SessionID            uuid.UUID  `json:"session_id"`
	WorkoutType          string     `json:"workout_type,omitempty"`
	UpdatedAt            time.Time  `json:"updated_at"`
	IsPaused             bool       `json:"is_paused"`
	StartAnchor          time.Time  `json:"start_anchor"`
	PausedElapsedSeconds int        `json:"paused_elapsed_seconds"`
	RestEndAnchor        *time.Time `json:"rest_end_anchor,omitempty"`
	RestDurationSeconds  int        `json:"rest_duration_seconds,omitempty"`
	SelectedGroupKey     string     `json:"selected_group_key,omitempty"`
}

// Store holds a single snapshot slot.
type Store interface {
	// Save overwrites the slot.
	Save(ctx context.Context, s Snapshot) error
	// Load returns the stored snapshot, or nil when the slot is empty or
	// holds an unknown version.
	Load(ctx context.Context) (*Snapshot, error)
	// Clear empties the slot. Clearing an empty slot is not an error.
	Clear(ctx context.Context) error
}

// Encode serializes s, stamping the current version.
func Encode(s Snapshot) ([]byte, error) {
	s.Version = Version
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// Decode parses data. An unknown version decodes to nil without error.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if s.Version != Version {
		return nil, nil
	}
	return &s, nil
}

// LoadFor returns the stored snapshot only if it belongs to sessionID. A
// snapshot of another session, or one that cannot be decoded, is cleared and
// reported as absent.
func LoadFor(ctx context.Context, store Store, sessionID uuid.UUID) (*Snapshot, error) {
	s, err := store.Load(ctx)
	if errors.Is(err, ErrCorrupt) {
		if err := store.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clearing corrupt snapshot: %w", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}
	if s.SessionID != sessionID {
		if err := store.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clearing stale snapshot: %w", err)
		}
		return nil, nil
	}
	return s, nil
}
