package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/tinylifts/internal/logbook"
	"github.com/meltforce/tinylifts/internal/timing"
)

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	view, ok, err := s.lb.Active(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": logbook.ErrNoActiveSession.Error()})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkoutID string `json:"workout_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.WorkoutID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "workout_id required"})
		return
	}
	sess, err := s.lb.StartSession(r.Context(), req.WorkoutID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	res, err := s.lb.EndSession(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLogSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseID string `json:"exercise_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.ExerciseID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise_id required"})
		return
	}
	set, ok, err := s.lb.LogSet(r.Context(), req.ExerciseID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusConflict, map[string]string{"error": logbook.ErrNoActiveSession.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

func (s *Server) handleGetInput(w http.ResponseWriter, r *http.Request) {
	in, err := s.lb.Input(r.Context(), chi.URLParam(r, "exerciseID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleSetInput(w http.ResponseWriter, r *http.Request) {
	var in logbook.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := s.lb.SetInput(chi.URLParam(r, "exerciseID"), in); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleRestState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.lb.RestTimer().State())
}

func (s *Server) handleRestStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Intensity string `json:"intensity"`
	}
	// An empty body starts a moderate rest.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.lb.RestTimer().Start(timing.ParseIntensity(req.Intensity))
	writeJSON(w, http.StatusOK, s.lb.RestTimer().State())
}

func (s *Server) handleRestPause(w http.ResponseWriter, r *http.Request) {
	s.lb.RestTimer().Pause()
	writeJSON(w, http.StatusOK, s.lb.RestTimer().State())
}

func (s *Server) handleRestResume(w http.ResponseWriter, r *http.Request) {
	s.lb.RestTimer().Resume()
	writeJSON(w, http.StatusOK, s.lb.RestTimer().State())
}

func (s *Server) handleRestReset(w http.ResponseWriter, r *http.Request) {
	s.lb.RestTimer().Reset()
	writeJSON(w, http.StatusOK, s.lb.RestTimer().State())
}

func (s *Server) handleRestAdjust(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.lb.RestTimer().AdjustTime(req.Delta)
	writeJSON(w, http.StatusOK, s.lb.RestTimer().State())
}

func (s *Server) handleMetronomeState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.lb.Metronome().State())
}

func (s *Server) handleMetronomeStart(w http.ResponseWriter, r *http.Request) {
	s.lb.Metronome().Start()
	writeJSON(w, http.StatusOK, s.lb.Metronome().State())
}

func (s *Server) handleMetronomeStop(w http.ResponseWriter, r *http.Request) {
	s.lb.Metronome().Stop()
	writeJSON(w, http.StatusOK, s.lb.Metronome().State())
}

func (s *Server) handleMetronomeToggle(w http.ResponseWriter, r *http.Request) {
	s.lb.Metronome().Toggle()
	writeJSON(w, http.StatusOK, s.lb.Metronome().State())
}
