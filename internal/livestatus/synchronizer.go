package livestatus

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/metrics"
)

const (
	DefaultTimeout = 2 * time.Second
	DefaultGrace   = 5 * time.Minute
)

// Synchronizer keeps the canonical activity of the running session up to
// date. Surface failures are logged and counted, never returned.
//
// A Synchronizer is not safe for concurrent use; the session runtime
// serializes calls.
type Synchronizer struct {
	surface   Surface
	logger    *slog.Logger
	metrics   *metrics.Manager
	timeout   time.Duration
	grace     time.Duration
	canonical Handle
}

// NewSynchronizer uses DefaultTimeout and DefaultGrace for non-positive
// durations.
func NewSynchronizer(surface Surface, logger *slog.Logger, m *metrics.Manager, timeout, grace time.Duration) *Synchronizer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if grace < 0 {
		grace = DefaultGrace
	}
	return &Synchronizer{
		surface: surface,
		logger:  logger,
		metrics: m,
		timeout: timeout,
		grace:   grace,
	}
}

// Handle returns the canonical handle, or nil.
func (s *Synchronizer) Handle() Handle { return s.canonical }

// AttachOrCreate makes sure exactly one activity exists for sessionID and
// shows c on it. Activities of other sessions and duplicates of this one are
// ended immediately.
func (s *Synchronizer) AttachOrCreate(ctx context.Context, sessionID uuid.UUID, c Content) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.metrics.CounterLiveStatusOps.WithLabelValues("attach").Inc()

	handles, err := s.surface.Active(ctx)
	if err != nil {
		s.fail("list", err, sessionID)
		// Without a listing, trust what we already hold.
		if s.canonical != nil && s.canonical.SessionID() == sessionID {
			s.update(ctx, c)
			return
		}
		if s.canonical != nil {
			s.end(ctx, s.canonical, nil, 0)
			s.canonical = nil
		}
		s.request(ctx, sessionID, c)
		return
	}

	var keep Handle
	for _, h := range handles {
		if h.SessionID() != sessionID {
			s.logger.Info("ending stale live activity", "activity_id", h.ID(), "session_id", h.SessionID())
			s.end(ctx, h, nil, 0)
			continue
		}
		if keep == nil {
			keep = h
			continue
		}
		s.logger.Info("ending duplicate live activity", "activity_id", h.ID(), "session_id", sessionID)
		s.end(ctx, h, nil, 0)
	}

	if keep == nil {
		s.canonical = nil
		s.request(ctx, sessionID, c)
		return
	}
	s.canonical = keep
	s.update(ctx, c)
}

// Push shows c on the canonical activity. It does nothing when none is held.
func (s *Synchronizer) Push(ctx context.Context, c Content) {
	if s.canonical == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.metrics.CounterLiveStatusOps.WithLabelValues("push").Inc()
	s.update(ctx, c)
}

// Finalize shows terminal content, leaves it visible for the grace window,
// and releases the canonical activity.
func (s *Synchronizer) Finalize(ctx context.Context, final Content) {
	h := s.canonical
	if h == nil {
		return
	}
	s.canonical = nil

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.metrics.CounterLiveStatusOps.WithLabelValues("finalize").Inc()
	s.end(ctx, h, &final, s.grace)
}

// End dismisses the canonical activity immediately.
func (s *Synchronizer) End(ctx context.Context) {
	h := s.canonical
	if h == nil {
		return
	}
	s.canonical = nil

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.metrics.CounterLiveStatusOps.WithLabelValues("end").Inc()
	s.end(ctx, h, nil, 0)
}

func (s *Synchronizer) request(ctx context.Context, sessionID uuid.UUID, c Content) {
	h, err := s.surface.Request(ctx, sessionID, c)
	if err != nil {
		s.fail("request", err, sessionID)
		return
	}
	s.canonical = h
	s.logger.Debug("live activity requested", "activity_id", h.ID(), "session_id", sessionID)
}

// update shows c on the canonical activity. An activity ended behind our back
// is replaced with a fresh one.
func (s *Synchronizer) update(ctx context.Context, c Content) {
	err := s.canonical.Update(ctx, c)
	if err == nil {
		return
	}
	sessionID := s.canonical.SessionID()
	s.fail("update", err, sessionID)
	if errors.Is(err, ErrActivityEnded) {
		s.canonical = nil
		s.request(ctx, sessionID, c)
	}
}

func (s *Synchronizer) end(ctx context.Context, h Handle, final *Content, dismissAfter time.Duration) {
	if err := h.End(ctx, final, dismissAfter); err != nil {
		s.fail("end", err, h.SessionID())
	}
}

func (s *Synchronizer) fail(op string, err error, sessionID uuid.UUID) {
	s.metrics.CounterLiveStatusFailures.WithLabelValues(op).Inc()
	s.logger.Warn("live status "+op+" failed", "session_id", sessionID, "error", err)
}
