package livestatus

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/timing"
)

// ErrActivityEnded is returned when updating an activity that was ended.
var ErrActivityEnded = errors.New("activity ended")

// Activity is a rendered entry of the Board.
type Activity struct {
	ID        string     `json:"id"`
	SessionID uuid.UUID  `json:"session_id"`
	Content   Content    `json:"content"`
	StartedAt time.Time  `json:"started_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Ended     bool       `json:"ended"`
	DismissAt *time.Time `json:"dismiss_at,omitempty"`
}

// Board is an in-process Surface. Clients read it over HTTP or MCP instead of
// a platform widget. Ended activities stay listed until their dismissal time.
type Board struct {
	mu         sync.Mutex
	clock      timing.Clock
	seq        uint64
	activities map[string]*boardEntry
}

type boardEntry struct {
	Activity
	seq uint64
}

var _ Surface = (*Board)(nil)

func NewBoard(clock timing.Clock) *Board {
	return &Board{
		clock:      clock,
		activities: make(map[string]*boardEntry),
	}
}

func (b *Board) Active(_ context.Context) ([]Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var live []*boardEntry
	for _, e := range b.activities {
		if !e.Ended {
			live = append(live, e)
		}
	}
	slices.SortFunc(live, func(x, y *boardEntry) int { return cmp.Compare(x.seq, y.seq) })

	handles := make([]Handle, 0, len(live))
	for _, e := range live {
		handles = append(handles, &boardHandle{board: b, id: e.ID, session: e.SessionID})
	}
	return handles, nil
}

func (b *Board) Request(_ context.Context, sessionID uuid.UUID, c Content) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	b.seq++
	e := &boardEntry{
		Activity: Activity{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Content:   c,
			StartedAt: now,
			UpdatedAt: now,
		},
		seq: b.seq,
	}
	b.activities[e.ID] = e
	return &boardHandle{board: b, id: e.ID, session: sessionID}, nil
}

// List prunes dismissed activities and returns the rest, oldest first.
func (b *Board) List() []Activity {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pruneLocked()
	entries := make([]*boardEntry, 0, len(b.activities))
	for _, e := range b.activities {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(x, y *boardEntry) int { return cmp.Compare(x.seq, y.seq) })

	out := make([]Activity, 0, len(entries))
	for _, e := range entries {
		a := e.Activity
		if a.DismissAt != nil {
			d := *a.DismissAt
			a.DismissAt = &d
		}
		out = append(out, a)
	}
	return out
}

func (b *Board) pruneLocked() {
	now := b.clock.Now()
	for id, e := range b.activities {
		if e.Ended && e.DismissAt != nil && !now.Before(*e.DismissAt) {
			delete(b.activities, id)
		}
	}
}

func (b *Board) update(id string, c Content) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.activities[id]
	if !ok || e.Ended {
		return ErrActivityEnded
	}
	e.Content = c
	e.UpdatedAt = b.clock.Now()
	return nil
}

func (b *Board) end(id string, final *Content, dismissAfter time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.activities[id]
	if !ok || e.Ended {
		return nil
	}
	now := b.clock.Now()
	if final != nil {
		e.Content = *final
	}
	if dismissAfter < 0 {
		dismissAfter = 0
	}
	dismiss := now.Add(dismissAfter)
	e.Ended = true
	e.UpdatedAt = now
	e.DismissAt = &dismiss
	b.pruneLocked()
	return nil
}

type boardHandle struct {
	board   *Board
	id      string
	session uuid.UUID
}

func (h *boardHandle) ID() string           { return h.id }
func (h *boardHandle) SessionID() uuid.UUID { return h.session }

func (h *boardHandle) Update(_ context.Context, c Content) error {
	return h.board.update(h.id, c)
}

func (h *boardHandle) End(_ context.Context, final *Content, dismissAfter time.Duration) error {
	return h.board.end(h.id, final, dismissAfter)
}
