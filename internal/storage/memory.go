package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
)

// Memory is an in-process implementation of the DB repository methods, used
// when no database is configured and in tests.
type Memory struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]models.Session
	sets     map[uuid.UUID]models.WorkoutSet
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[uuid.UUID]models.Session),
		sets:     make(map[uuid.UUID]models.WorkoutSet),
	}
}

func (m *Memory) GetSession(_ context.Context, id uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return &s, nil
}

func (m *Memory) SaveSession(_ context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *Memory) DeleteSession(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	delete(m.sessions, id)
	for setID, s := range m.sets {
		if s.SessionID == id {
			delete(m.sets, setID)
		}
	}
	return nil
}

func (m *Memory) ListSessions(_ context.Context, status models.SessionStatus, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.Session
	for _, s := range m.sessions {
		if status == "" || s.Status == status {
			result = append(result, s)
		}
	}
	slices.SortFunc(result, func(a, b models.Session) int { return b.StartedAt.Compare(a.StartedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *Memory) ListSets(_ context.Context, sessionID uuid.UUID) ([]models.WorkoutSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.WorkoutSet
	for _, s := range m.sets {
		if s.SessionID == sessionID {
			result = append(result, s)
		}
	}
	slices.SortFunc(result, func(a, b models.WorkoutSet) int {
		if c := cmp.Compare(a.SetIndex, b.SetIndex); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return result, nil
}

func (m *Memory) AppendSet(_ context.Context, s models.WorkoutSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.SessionID]; !ok {
		return fmt.Errorf("session %s: %w", s.SessionID, ErrNotFound)
	}
	if _, ok := m.sets[s.ID]; ok {
		return fmt.Errorf("set %s already exists", s.ID)
	}
	m.sets[s.ID] = s
	return nil
}

func (m *Memory) RemoveSet(_ context.Context, setID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sets[setID]; !ok {
		return fmt.Errorf("set %s: %w", setID, ErrNotFound)
	}
	delete(m.sets, setID)
	return nil
}

func (m *Memory) MarkCompleted(_ context.Context, setID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[setID]
	if !ok {
		return fmt.Errorf("set %s: %w", setID, ErrNotFound)
	}
	s.IsCompleted = true
	s.CompletedAt = &at
	m.sets[setID] = s
	return nil
}
