package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/claude/repcoach/internal/catalog"
	"github.com/google/uuid"
)

func (s *Server) handleListAllWorkouts(w http.ResponseWriter, r *http.Request) {
	templates, err := s.db.ListTemplates(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(templates))
}

// handleCreateWorkout accepts a template in either stored layout, as JSON or
// as YAML when the Content-Type says so, and stores its normalized form.
func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading body: " + err.Error()})
		return
	}

	parse := catalog.ParseJSON
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		parse = catalog.ParseYAML
	}
	tmpl, err := parse(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	id, err := s.db.UpsertTemplate(r.Context(), tmpl.Name, tmpl.Description, tmpl.Exercises)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("workout template stored", "template_id", id, "name", tmpl.Name, "exercises", len(tmpl.Exercises))

	stored, err := s.db.GetTemplate(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

type assignRequest struct {
	TemplateID  uuid.UUID `json:"template_id"`
	Login       string    `json:"login"`
	DisplayName string    `json:"display_name"`
}

// handleAssignWorkout assigns a template to a client by login, creating the
// client record if the login has not been seen yet.
func (s *Server) handleAssignWorkout(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	req.Login = strings.TrimSpace(req.Login)
	if req.TemplateID == uuid.Nil || req.Login == "" {
		s.writeError(w, fmt.Errorf("%w: template_id and login are required", errBadRequest))
		return
	}

	if _, err := s.db.GetTemplate(r.Context(), req.TemplateID); err != nil {
		s.writeError(w, err)
		return
	}
	uid, err := s.db.GetOrCreateUser(r.Context(), req.Login, req.DisplayName)
	if err != nil {
		s.writeError(w, err)
		return
	}
	a, err := s.db.AssignTemplate(r.Context(), req.TemplateID, uid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("workout assigned", "template_id", req.TemplateID, "login", req.Login, "user_id", uid)
	writeJSON(w, http.StatusCreated, a)
}

// handleListImports returns recent template import runs, newest first.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			s.writeError(w, fmt.Errorf("%w: limit must be between 1 and 500", errBadRequest))
			return
		}
		limit = n
	}

	runs, err := s.db.QueryImportLogs(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(runs))
}
