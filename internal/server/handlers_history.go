package server

import (
	"net/http"
	"strings"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
)

func (s *Server) handleQueryWorkouts(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	workouts, err := s.db.QueryWorkouts(r.Context(), start, end, userIDFromContext(r), r.URL.Query().Get("type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout ID"})
		return
	}

	detail, err := s.db.GetWorkout(r.Context(), id, userIDFromContext(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout ID"})
		return
	}
	if err := s.db.DeleteWorkout(r.Context(), id, userIDFromContext(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuerySets(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sets, err := s.db.QueryWorkoutSets(r.Context(), start, end, userIDFromContext(r), r.URL.Query().Get("exercise"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.db.ListTemplates(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid template ID"})
		return
	}
	t, err := s.db.GetTemplate(r.Context(), id, userIDFromContext(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	t, ok := s.decodeTemplate(w, r)
	if !ok {
		return
	}
	if err := s.db.CreateTemplate(r.Context(), t); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid template ID"})
		return
	}
	t, ok := s.decodeTemplate(w, r)
	if !ok {
		return
	}
	t.ID = id
	if err := s.db.UpdateTemplate(r.Context(), t); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid template ID"})
		return
	}
	if err := s.db.DeleteTemplate(r.Context(), id, userIDFromContext(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeTemplate reads a template body owned by the caller. Templates follow
// the same rules as a workout started from them.
func (s *Server) decodeTemplate(w http.ResponseWriter, r *http.Request) (*models.Template, bool) {
	var t models.Template
	if err := decodeBody(r, &t); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return nil, false
	}
	t.Name = strings.TrimSpace(t.Name)
	t.UserID = userIDFromContext(r)
	if err := session.ValidateConfig(t.WorkoutConfig()); err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return &t, true
}

func (s *Server) handleTrainingSummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	bucket := "1 week"
	switch r.URL.Query().Get("period") {
	case "daily":
		bucket = "1 day"
	case "monthly":
		bucket = "1 month"
	}

	summary, err := s.db.GetTrainingSummary(r.Context(), start, end, bucket, userIDFromContext(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePersonalRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.db.GetPersonalRecords(r.Context(), userIDFromContext(r), r.URL.Query().Get("exercise"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
