package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/claude/repcoach/internal/coach"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type startRequest struct {
	TemplateID uuid.UUID `json:"template_id"`
}

// weightRequest carries either a relative or an absolute change.
type weightRequest struct {
	Delta *float64 `json:"delta"`
	Value *float64 `json:"value"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req startRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.TemplateID == uuid.Nil {
		s.writeError(w, fmt.Errorf("%w: template_id is required", errBadRequest))
		return
	}
	v, err := s.coach.Start(r.Context(), uid, req.TemplateID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.coach.List(uid)))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.sessionOp(w, r, s.coach.Get)
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := s.sessionTarget(w, r)
	if !ok {
		return
	}
	if err := s.coach.Cancel(uid, id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleSet(w http.ResponseWriter, r *http.Request) {
	set, err := strconv.Atoi(chi.URLParam(r, "set"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid set number"})
		return
	}
	s.sessionOp(w, r, func(uid int, id uuid.UUID) (*coach.View, error) {
		return s.coach.ToggleSet(uid, id, set)
	})
}

func (s *Server) handleWeight(w http.ResponseWriter, r *http.Request) {
	var req weightRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if (req.Delta == nil) == (req.Value == nil) {
		s.writeError(w, fmt.Errorf("%w: exactly one of delta and value is required", errBadRequest))
		return
	}
	s.sessionOp(w, r, func(uid int, id uuid.UUID) (*coach.View, error) {
		if req.Delta != nil {
			return s.coach.AdjustWeight(uid, id, *req.Delta)
		}
		return s.coach.SetWeight(uid, id, *req.Value)
	})
}

func (s *Server) handleSkipRest(w http.ResponseWriter, r *http.Request) {
	s.sessionOp(w, r, s.coach.SkipRest)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.sessionOp(w, r, s.coach.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.sessionOp(w, r, s.coach.Resume)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.finishingOp(w, r, func(uid int, id uuid.UUID) (*coach.View, error) {
		return s.coach.Advance(r.Context(), uid, id)
	})
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	s.finishingOp(w, r, func(uid int, id uuid.UUID) (*coach.View, error) {
		return s.coach.Commit(r.Context(), uid, id)
	})
}

// finishingOp runs an operation that may save the session's log. A failed
// save still returns the pending session so the client can retry.
func (s *Server) finishingOp(w http.ResponseWriter, r *http.Request, op func(int, uuid.UUID) (*coach.View, error)) {
	uid, id, ok := s.sessionTarget(w, r)
	if !ok {
		return
	}
	v, err := op(uid, id)
	if errors.Is(err, coach.ErrCommitFailed) {
		s.log.Error("request failed", "status", http.StatusBadGateway, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "session": v})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) sessionOp(w http.ResponseWriter, r *http.Request, op func(int, uuid.UUID) (*coach.View, error)) {
	uid, id, ok := s.sessionTarget(w, r)
	if !ok {
		return
	}
	v, err := op(uid, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) sessionTarget(w http.ResponseWriter, r *http.Request) (int, uuid.UUID, bool) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return 0, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return 0, uuid.Nil, false
	}
	return uid, id, true
}
