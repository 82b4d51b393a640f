package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/claude/liftlog/internal/livestatus"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/workout"
)

// SessionLister lists persisted sessions for the session picker.
type SessionLister interface {
	ListSessions(ctx context.Context, status models.SessionStatus, limit int) ([]models.Session, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	rt       *workout.Runtime
	sessions SessionLister
	board    *livestatus.Board
	metrics  *metrics.Manager
	log      *slog.Logger
	apiKey   string
	router   chi.Router

	mu    sync.RWMutex
	whois WhoIser
}

// New creates a new Server with all routes configured. board may be nil when
// live status is not rendered in process.
func New(rt *workout.Runtime, sessions SessionLister, board *livestatus.Board, m *metrics.Manager, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		rt:       rt,
		sessions: sessions,
		board:    board,
		metrics:  m,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(RequestMetrics(s.metrics))
	s.router.Use(CORS)
	s.router.Use(s.identity)

	s.router.Get("/api/v1/me", s.handleMe)
	s.router.Get("/api/v1/session", s.handleGetSession)
	s.router.Get("/api/v1/session/events", s.handleEvents)
	s.router.Get("/api/v1/sessions", s.handleListSessions)
	s.router.Get("/api/v1/live", s.handleLive)

	// Mutations (API key required)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))

		r.Post("/api/v1/sessions", s.handleBegin)
		r.Post("/api/v1/sessions/{id}/open", s.handleOpen)

		r.Route("/api/v1/session", func(r chi.Router) {
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)
			r.Post("/end", s.handleEnd)
			r.Post("/discard", s.handleDiscard)

			r.Post("/sets", s.handleAppendSet)
			r.Delete("/sets/{setID}", s.handleRemoveSet)
			r.Post("/sets/{setID}/complete", s.handleCompleteSet)

			r.Put("/selection", s.handleSelect)
			r.Delete("/selection", s.handleClearSelection)

			r.Post("/rest", s.handleStartRest)
			r.Delete("/rest", s.handleSkipRest)
		})
	})
}

// SetMetricsHandler mounts the Prometheus scrape endpoint at /metrics.
func (s *Server) SetMetricsHandler(h http.Handler) {
	s.router.Handle("/metrics", h)
}

// SetMCP mounts the streamable MCP endpoint at /mcp.
func (s *Server) SetMCP(h http.Handler) {
	s.router.Handle("/mcp", h)
	s.router.Handle("/mcp/*", h)
}

// SetTailscale resolves request identities through the tailnet instead of
// the local development identity.
func (s *Server) SetTailscale(lc WhoIser) {
	s.mu.Lock()
	s.whois = lc
	s.mu.Unlock()
}
