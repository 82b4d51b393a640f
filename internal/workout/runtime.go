// Package workout runs the active workout session: the session clock, the
// rest countdown and the exercise selection, kept in sync with the resume
// snapshot and the live status activity.
package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/claude/liftlog/internal/livestatus"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/progression"
	"github.com/claude/liftlog/internal/snapshot"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/timing"
)

// Options configures a Runtime. Clock defaults to the system clock and
// TickInterval to one second.
type Options struct {
	Clock        timing.Clock
	TickInterval time.Duration
}

// Runtime owns the state of the one active session. All methods are safe for
// concurrent use.
type Runtime struct {
	store     Store
	snapshots snapshot.Store
	live      *livestatus.Synchronizer
	metrics   *metrics.Manager
	logger    *slog.Logger
	wall      timing.Clock

	mu       sync.Mutex
	session  *models.Session
	sets     []models.WorkoutSet
	groups   []progression.Group
	progress progression.Progress
	clock    *timing.SessionClock
	rest     *timing.RestTimer
	selector progression.Selector
	subs     []chan Event

	attached    bool
	attachCtx   context.Context
	clockTicker *timing.Ticker
	restTicker  *timing.Ticker
}

// NewRuntime returns an idle runtime; Attach starts its tick loops.
func NewRuntime(
	store Store,
	snapshots snapshot.Store,
	live *livestatus.Synchronizer,
	m *metrics.Manager,
	logger *slog.Logger,
	opts Options,
) *Runtime {
	if opts.Clock == nil {
		opts.Clock = timing.SystemClock{}
	}
	r := &Runtime{
		store:     store,
		snapshots: snapshots,
		live:      live,
		metrics:   m,
		logger:    logger,
		wall:      opts.Clock,
		progress:  progression.Progress{GroupIndex: -1},
	}
	r.clockTicker = timing.NewTicker(opts.TickInterval, func(time.Time) { r.onClockTick() })
	r.restTicker = timing.NewTicker(opts.TickInterval, func(time.Time) { r.onRestTick() })
	return r
}

// CurrentState returns a view of the active session, or an inactive State.
func (r *Runtime) CurrentState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

// Begin creates a new session with the given sets and starts its clock.
func (r *Runtime) Begin(ctx context.Context, name, workoutType string, sets []models.WorkoutSet) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return State{}, ErrSessionActive
	}

	session := models.Session{
		ID:          uuid.New(),
		Name:        name,
		WorkoutType: workoutType,
		StartedAt:   r.wall.Now(),
		Status:      models.SessionActive,
	}
	if err := r.store.SaveSession(ctx, session); err != nil {
		return State{}, fmt.Errorf("creating session: %w", err)
	}

	prepared := make([]models.WorkoutSet, 0, len(sets))
	for _, set := range sets {
		set = prepareSet(set, session.ID)
		if err := r.store.AppendSet(ctx, set); err != nil {
			err = fmt.Errorf("creating set %s: %w", set.ID, err)
			if delErr := r.store.DeleteSession(ctx, session.ID); delErr != nil {
				err = multierr.Append(err, fmt.Errorf("removing partial session: %w", delErr))
			}
			return State{}, err
		}
		prepared = append(prepared, set)
	}

	r.activateLocked(session, prepared)
	r.clock.StartAt(session.StartedAt)
	r.refreshLocked()

	r.logger.Info("session started", "session_id", session.ID, "sets", len(prepared))
	r.metrics.CounterSessionTransitions.WithLabelValues("begin").Inc()
	r.metrics.GaugeActiveSessions.Set(1)

	r.live.AttachOrCreate(ctx, session.ID, r.contentLocked())
	r.saveSnapshotLocked(ctx)
	r.emitLocked(EventStateChanged, "")
	r.startTickersLocked()
	return r.stateLocked(), nil
}

// Open makes a persisted session the active one. The resume snapshot is used
// when it belongs to the session; otherwise the clock starts from the
// session's recorded start. Opening the already active session is a no-op.
func (r *Runtime) Open(ctx context.Context, sessionID uuid.UUID) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		if r.session.ID == sessionID {
			return r.stateLocked(), nil
		}
		return State{}, ErrSessionActive
	}

	session, err := r.store.GetSession(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return State{}, ErrSessionNotFound
	}
	if err != nil {
		return State{}, fmt.Errorf("loading session: %w", err)
	}
	if session.Status != models.SessionActive {
		return State{}, ErrSessionClosed
	}
	sets, err := r.store.ListSets(ctx, sessionID)
	if err != nil {
		return State{}, fmt.Errorf("loading sets: %w", err)
	}

	snap, err := snapshot.LoadFor(ctx, r.snapshots, sessionID)
	if err != nil {
		r.metrics.CounterSnapshotFailures.WithLabelValues("load").Inc()
		r.logger.Warn("loading resume snapshot failed", "session_id", sessionID, "error", err)
		snap = nil
	}

	r.activateLocked(*session, sets)
	if snap != nil {
		r.restoreLocked(snap)
	} else {
		r.clock.StartAt(session.StartedAt)
	}
	r.refreshLocked()

	r.logger.Info("session opened", "session_id", sessionID, "from_snapshot", snap != nil)
	r.metrics.CounterSessionTransitions.WithLabelValues("open").Inc()
	r.metrics.GaugeActiveSessions.Set(1)

	r.live.AttachOrCreate(ctx, sessionID, r.contentLocked())
	r.saveSnapshotLocked(ctx)
	r.emitLocked(EventStateChanged, "")
	r.startTickersLocked()
	return r.stateLocked(), nil
}

// Recover reopens the session named by the stored resume snapshot, if any.
// A snapshot pointing at a missing or finished session is cleared.
func (r *Runtime) Recover(ctx context.Context) (bool, error) {
	snap, err := r.snapshots.Load(ctx)
	if err != nil && !errors.Is(err, snapshot.ErrCorrupt) {
		return false, fmt.Errorf("loading resume snapshot: %w", err)
	}
	if snap == nil {
		if err != nil {
			r.clearSnapshot(ctx)
		}
		return false, nil
	}

	_, err = r.Open(ctx, snap.SessionID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionClosed):
		r.logger.Info("discarding resume snapshot of closed session", "session_id", snap.SessionID)
		r.clearSnapshot(ctx)
		return false, nil
	case errors.Is(err, ErrSessionActive):
		return false, nil
	default:
		return false, err
	}
}

// Pause freezes the session clock and ends any rest in progress.
func (r *Runtime) Pause(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return ErrNoActiveSession
	}
	if r.clock.IsPaused() {
		r.logger.Debug("pause ignored, already paused", "session_id", r.session.ID)
		return nil
	}
	if r.rest.End() {
		r.metrics.CounterRestEnds.WithLabelValues(string(timing.RestEnded)).Inc()
	}
	r.clock.Pause()
	r.metrics.CounterSessionTransitions.WithLabelValues("pause").Inc()
	r.mutatedLocked(ctx)
	return nil
}

// Resume continues a paused session from its frozen elapsed time.
func (r *Runtime) Resume(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return ErrNoActiveSession
	}
	if !r.clock.Resume() {
		r.logger.Debug("resume ignored, not paused", "session_id", r.session.ID)
		return nil
	}
	r.metrics.CounterSessionTransitions.WithLabelValues("resume").Inc()
	r.mutatedLocked(ctx)
	return nil
}

// End finishes the session and records its duration. The returned record is
// the persisted one.
func (r *Runtime) End(ctx context.Context) (*models.Session, error) {
	r.stopTickers()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil, ErrNoActiveSession
	}

	now := r.wall.Now()
	final := r.clock.ElapsedSeconds()
	ended := *r.session
	ended.EndedAt = &now
	ended.DurationSec = &final
	ended.Status = models.SessionCompleted
	if err := r.store.SaveSession(ctx, ended); err != nil {
		r.startTickersLocked()
		return nil, fmt.Errorf("saving session outcome: %w", err)
	}

	r.clock.End()
	if r.rest.End() {
		r.metrics.CounterRestEnds.WithLabelValues(string(timing.RestEnded)).Inc()
	}
	r.live.Finalize(ctx, r.contentLocked().Terminal(final))
	r.clearSnapshot(ctx)

	r.logger.Info("session ended", "session_id", ended.ID, "duration_sec", final)
	r.metrics.CounterSessionTransitions.WithLabelValues("end").Inc()
	r.metrics.GaugeActiveSessions.Set(0)

	st := r.stateLocked()
	st.Active = false
	r.emitStateLocked(EventSessionEnded, st, "")
	r.deactivateLocked()
	return &ended, nil
}

// Discard abandons the session and deletes its record.
func (r *Runtime) Discard(ctx context.Context) error {
	r.stopTickers()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return ErrNoActiveSession
	}
	id := r.session.ID

	r.clock.Discard()
	if r.rest.End() {
		r.metrics.CounterRestEnds.WithLabelValues(string(timing.RestEnded)).Inc()
	}
	r.live.End(ctx)
	r.clearSnapshot(ctx)

	st := r.stateLocked()
	st.Active = false
	r.deactivateLocked()
	r.metrics.CounterSessionTransitions.WithLabelValues("discard").Inc()
	r.metrics.GaugeActiveSessions.Set(0)
	r.emitStateLocked(EventSessionDiscarded, st, "")

	if err := r.store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	r.logger.Info("session discarded", "session_id", id)
	return nil
}

// CompleteSet marks a set done. Completing a working set starts its rest
// period unless the session is paused. Completing a set twice is a no-op.
func (r *Runtime) CompleteSet(ctx context.Context, setID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return ErrNoActiveSession
	}
	i := r.indexOfSetLocked(setID)
	if i < 0 {
		return ErrSetNotFound
	}
	if r.sets[i].IsCompleted {
		r.logger.Debug("set already completed", "set_id", setID)
		return nil
	}

	now := r.wall.Now()
	if err := r.store.MarkCompleted(ctx, setID, now); err != nil {
		return fmt.Errorf("completing set %s: %w", setID, err)
	}
	r.sets[i].IsCompleted = true
	r.sets[i].CompletedAt = &now
	r.regroupLocked()
	r.metrics.CounterSetsCompleted.Inc()

	set := r.sets[i]
	if set.Kind == models.SetKindWork && !r.clock.IsPaused() {
		r.rest.Start(set.RestSeconds)
	}
	r.mutatedLocked(ctx)
	return nil
}

// AppendSet adds a set to the active session. Missing IDs are generated and
// an invalid kind defaults to a working set.
func (r *Runtime) AppendSet(ctx context.Context, set models.WorkoutSet) (models.WorkoutSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return models.WorkoutSet{}, ErrNoActiveSession
	}
	set = prepareSet(set, r.session.ID)
	if err := r.store.AppendSet(ctx, set); err != nil {
		return models.WorkoutSet{}, fmt.Errorf("appending set: %w", err)
	}
	r.sets = append(r.sets, set)
	r.regroupLocked()
	r.mutatedLocked(ctx)
	return set, nil
}

// RemoveSet deletes a set from the active session. Removing the last set of
// the pinned exercise returns the selection to automatic.
func (r *Runtime) RemoveSet(ctx context.Context, setID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return ErrNoActiveSession
	}
	i := r.indexOfSetLocked(setID)
	if i < 0 {
		return ErrSetNotFound
	}
	if err := r.store.RemoveSet(ctx, setID); err != nil {
		return fmt.Errorf("removing set %s: %w", setID, err)
	}
	r.sets = slices.Delete(r.sets, i, i+1)
	r.regroupLocked()
	r.mutatedLocked(ctx)
	return nil
}

// SelectGroup pins the exercise with the given group key. An unknown key
// returns the selection to automatic; the result reports whether a pin is set.
func (r *Runtime) SelectGroup(ctx context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return false, ErrNoActiveSession
	}
	pinned := r.selector.Select(key, r.groups)
	if !pinned && key != "" {
		r.logger.Info("unknown group key, using automatic selection", "session_id", r.session.ID, "group_key", key)
	}
	r.mutatedLocked(ctx)
	return pinned, nil
}

// ClearSelection returns to automatic exercise selection.
func (r *Runtime) ClearSelection(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return ErrNoActiveSession
	}
	r.selector.Clear()
	r.mutatedLocked(ctx)
	return nil
}

// StartRest starts a countdown of seconds. Non-positive durations and a
// paused session make it a no-op.
func (r *Runtime) StartRest(ctx context.Context, seconds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return ErrNoActiveSession
	}
	if r.clock.IsPaused() {
		r.logger.Debug("rest ignored while paused", "session_id", r.session.ID)
		return nil
	}
	if !r.rest.Start(seconds) {
		r.logger.Debug("rest ignored, non-positive duration", "seconds", seconds)
		return nil
	}
	r.mutatedLocked(ctx)
	return nil
}

// SkipRest ends the current rest early.
func (r *Runtime) SkipRest(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return ErrNoActiveSession
	}
	if !r.rest.Skip() {
		return nil
	}
	r.metrics.CounterRestEnds.WithLabelValues(string(timing.RestSkipped)).Inc()
	r.mutatedLocked(ctx)
	r.emitLocked(EventRestEnded, timing.RestSkipped)
	return nil
}

// Tick advances the runtime by one elapsed-time step: it expires a finished
// rest and notifies subscribers. The tick loops call it once a second.
func (r *Runtime) Tick(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickLocked(ctx)
}

func (r *Runtime) tickLocked(ctx context.Context) {
	if r.session == nil {
		return
	}
	r.expireRestLocked(ctx)
	r.emitLocked(EventTick, "")
}

// expireRestLocked ends a rest whose deadline has passed and reports whether
// it did.
func (r *Runtime) expireRestLocked(ctx context.Context) bool {
	if !r.rest.IsResting() {
		return false
	}
	if _, ended := r.rest.Tick(); !ended {
		return false
	}
	r.metrics.CounterRestEnds.WithLabelValues(string(timing.RestExpired)).Inc()
	r.mutatedLocked(ctx)
	r.emitLocked(EventRestEnded, timing.RestExpired)
	return true
}

func (r *Runtime) activateLocked(session models.Session, sets []models.WorkoutSet) {
	s := session
	r.session = &s
	r.sets = append([]models.WorkoutSet(nil), sets...)
	r.clock = timing.NewSessionClock(r.wall)
	r.rest = timing.NewRestTimer(r.wall)
	r.selector = progression.Selector{}
	r.regroupLocked()
}

func (r *Runtime) restoreLocked(snap *snapshot.Snapshot) {
	r.clock = timing.RestoreSessionClock(r.wall, timing.ClockSnapshot{
		IsPaused:             snap.IsPaused,
		StartAnchor:          snap.StartAnchor,
		PausedElapsedSeconds: snap.PausedElapsedSeconds,
	})
	if snap.RestEndAnchor != nil && !snap.IsPaused {
		if !r.rest.Restore(snap.RestEndAnchor, snap.RestDurationSeconds) {
			r.metrics.CounterRestEnds.WithLabelValues(string(timing.RestExpired)).Inc()
			r.logger.Info("rest expired while away", "session_id", snap.SessionID)
		}
	}
	r.selector.Restore(snap.SelectedGroupKey)
}

func (r *Runtime) deactivateLocked() {
	r.session = nil
	r.sets = nil
	r.groups = nil
	r.progress = progression.Progress{GroupIndex: -1}
	r.selector.Clear()
}

func (r *Runtime) regroupLocked() {
	r.groups = progression.GroupSets(r.sets)
}

// refreshLocked re-evaluates the progress and reports a pin that vanished.
func (r *Runtime) refreshLocked() {
	before := r.selector.Selected()
	r.progress = r.selector.Evaluate(r.groups)
	if before != "" && r.selector.Selected() == "" {
		r.logger.Info("selected exercise no longer exists, using automatic selection",
			"session_id", r.session.ID, "group_key", before)
	}
}

// mutatedLocked propagates a state change to the snapshot, the live status
// and subscribers.
func (r *Runtime) mutatedLocked(ctx context.Context) {
	r.refreshLocked()
	r.saveSnapshotLocked(ctx)
	r.live.Push(ctx, r.contentLocked())
	r.emitLocked(EventStateChanged, "")
}

func (r *Runtime) saveSnapshotLocked(ctx context.Context) {
	snap := snapshot.Snapshot{
		SessionID:           r.session.ID,
		WorkoutType:         r.session.WorkoutType,
		UpdatedAt:           r.wall.Now(),
		IsPaused:            r.clock.IsPaused(),
		StartAnchor:         r.clock.StartAnchor(),
		RestEndAnchor:       r.rest.EndAnchor(),
		RestDurationSeconds: r.rest.DurationSeconds(),
		SelectedGroupKey:    r.selector.Selected(),
	}
	if snap.IsPaused {
		snap.PausedElapsedSeconds = r.clock.ElapsedSeconds()
	}
	if err := r.snapshots.Save(ctx, snap); err != nil {
		r.metrics.CounterSnapshotFailures.WithLabelValues("save").Inc()
		r.logger.Warn("saving resume snapshot failed", "session_id", r.session.ID, "error", err)
		return
	}
	r.metrics.CounterSnapshotSaves.Inc()
}

func (r *Runtime) clearSnapshot(ctx context.Context) {
	if err := r.snapshots.Clear(ctx); err != nil {
		r.metrics.CounterSnapshotFailures.WithLabelValues("clear").Inc()
		r.logger.Warn("clearing resume snapshot failed", "error", err)
	}
}

func (r *Runtime) indexOfSetLocked(id uuid.UUID) int {
	return slices.IndexFunc(r.sets, func(s models.WorkoutSet) bool { return s.ID == id })
}

func prepareSet(set models.WorkoutSet, sessionID uuid.UUID) models.WorkoutSet {
	if set.ID == uuid.Nil {
		set.ID = uuid.New()
	}
	set.SessionID = sessionID
	if !set.Kind.IsValid() {
		set.Kind = models.SetKindWork
	}
	if set.GroupKey == "" {
		set.GroupKey = set.ExerciseName
	}
	set.IsCompleted = false
	set.CompletedAt = nil
	return set
}
