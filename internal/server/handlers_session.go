package server

import (
	"net/http"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/google/uuid"
)

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	current := s.tracker.Session()
	if current == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active session"})
		return
	}
	writeJSON(w, http.StatusOK, current)
}

// handleStartSession starts a workout from an inline config, or from a stored
// template when only template_id is given. A name in the body overrides the
// template's. An inline config may name a template too, but it must be one of
// the caller's.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var cfg models.WorkoutConfig
	if err := decodeBody(r, &cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if cfg.TemplateID != "" {
		id, err := uuid.Parse(cfg.TemplateID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid template_id"})
			return
		}
		tmpl, err := s.db.GetTemplate(r.Context(), id, userIDFromContext(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if len(cfg.Exercises) == 0 {
			name := cfg.Name
			cfg = tmpl.WorkoutConfig()
			if name != "" {
				cfg.Name = name
			}
		} else {
			cfg.TemplateID = tmpl.ID.String()
		}
	}

	started, err := s.tracker.StartWorkout(r.Context(), cfg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, started)
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Discard(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r)(s.tracker.Pause(r.Context()))
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r)(s.tracker.Resume(r.Context()))
}

type restRequest struct {
	Seconds int `json:"seconds"`
}

func (s *Server) handleStartRest(w http.ResponseWriter, r *http.Request) {
	var req restRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	d, err := session.RestSeconds(req.Seconds)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r)(s.tracker.StartRest(r.Context(), d))
}

func (s *Server) handleClearRest(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r)(s.tracker.ClearRest(r.Context()))
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	workout, err := s.tracker.Finish(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, workout)
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	var ex models.ExerciseConfig
	if err := decodeBody(r, &ex); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.respond(w, r)(s.tracker.AddExercise(r.Context(), ex))
}

func (s *Server) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	ex, err := indexParam(r, "ex")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.respond(w, r)(s.tracker.RemoveExercise(r.Context(), ex))
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	ex, err := indexParam(r, "ex")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var target models.SetTarget
	if err := decodeBody(r, &target); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.respond(w, r)(s.tracker.AddSet(r.Context(), ex, target))
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	ex, set, ok := setParams(w, r)
	if !ok {
		return
	}
	var target models.SetTarget
	if err := decodeBody(r, &target); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.respond(w, r)(s.tracker.UpdateSet(r.Context(), ex, set, target))
}

func (s *Server) handleRemoveSet(w http.ResponseWriter, r *http.Request) {
	ex, set, ok := setParams(w, r)
	if !ok {
		return
	}
	s.respond(w, r)(s.tracker.RemoveSet(r.Context(), ex, set))
}

func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	ex, set, ok := setParams(w, r)
	if !ok {
		return
	}
	var result models.SetResult
	if err := decodeBody(r, &result); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.respond(w, r)(s.tracker.CompleteSet(r.Context(), ex, set, result))
}

// respond writes the outcome of a tracker mutation.
func (s *Server) respond(w http.ResponseWriter, r *http.Request) func(*models.ActiveSession, error) {
	return func(updated *models.ActiveSession, err error) {
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func setParams(w http.ResponseWriter, r *http.Request) (ex, set int, ok bool) {
	ex, err := indexParam(r, "ex")
	if err == nil {
		set, err = indexParam(r, "set")
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return 0, 0, false
	}
	return ex, set, true
}
