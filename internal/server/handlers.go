package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/livestatus"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/workout"
)

type beginRequest struct {
	Name        string              `json:"name"`
	WorkoutType string              `json:"workout_type"`
	Sets        []models.WorkoutSet `json:"sets"`
}

type selectRequest struct {
	GroupKey string `json:"group_key"`
}

type restRequest struct {
	Seconds int `json:"seconds"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rt.CurrentState())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	status := models.SessionStatus(r.URL.Query().Get("status"))
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	sessions, err := s.sessions.ListSessions(r.Context(), status, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	activities := []livestatus.Activity{}
	if s.board != nil {
		activities = append(activities, s.board.List()...)
	}
	writeJSON(w, http.StatusOK, activities)
}

func (s *Server) handleBegin(w http.ResponseWriter, r *http.Request) {
	var req beginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	st, err := s.rt.Begin(r.Context(), req.Name, req.WorkoutType, req.Sets)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	st, err := s.rt.Open(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.Pause(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.rt.CurrentState())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.Resume(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.rt.CurrentState())
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	session, err := s.rt.End(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.Discard(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAppendSet(w http.ResponseWriter, r *http.Request) {
	var set models.WorkoutSet
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if set.ExerciseName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise_name is required"})
		return
	}
	added, err := s.rt.AppendSet(r.Context(), set)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleRemoveSet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "setID"))
	if !ok {
		return
	}
	if err := s.rt.RemoveSet(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "setID"))
	if !ok {
		return
	}
	if err := s.rt.CompleteSet(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.rt.CurrentState())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupKey == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "group_key is required"})
		return
	}
	// An unknown key falls back to automatic selection; the state shows it.
	if _, err := s.rt.SelectGroup(r.Context(), req.GroupKey); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.rt.CurrentState())
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.ClearSelection(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.rt.CurrentState())
}

func (s *Server) handleStartRest(w http.ResponseWriter, r *http.Request) {
	var req restRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Seconds <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seconds must be positive"})
		return
	}
	if err := s.rt.StartRest(r.Context(), req.Seconds); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.rt.CurrentState())
}

func (s *Server) handleSkipRest(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.SkipRest(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.rt.CurrentState())
}

// writeError maps runtime errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workout.ErrNoActiveSession),
		errors.Is(err, workout.ErrSessionActive),
		errors.Is(err, workout.ErrSessionClosed):
		status = http.StatusConflict
	case errors.Is(err, workout.ErrSetNotFound),
		errors.Is(err, workout.ErrSessionNotFound):
		status = http.StatusNotFound
	default:
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func parseID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
