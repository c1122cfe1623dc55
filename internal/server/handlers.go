package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/tinylifts/internal/logbook"
	"github.com/meltforce/tinylifts/internal/models"
	"github.com/meltforce/tinylifts/internal/progress"
	"github.com/meltforce/tinylifts/internal/storage"
)

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (models.Snapshot, bool) {
	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, fmt.Errorf("loading snapshot: %w", err))
		return models.Snapshot{}, false
	}
	return snap, true
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	workouts, err := s.store.ListWorkouts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workouts)
}

// workoutDetail is a workout with its exercises resolved, in order.
type workoutDetail struct {
	models.Workout
	ExerciseList []models.Exercise `json:"exercise_list"`
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	wk, found := snap.Workouts[id]
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	writeJSON(w, http.StatusOK, workoutDetail{Workout: wk, ExerciseList: progress.WorkoutExercises(snap, id)})
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.store.ListExercises(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	ex, err := s.store.GetExercise(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

func (s *Server) handleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	var settings logbook.ExerciseSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	ex, err := s.lb.UpdateExercise(r.Context(), chi.URLParam(r, "id"), settings)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

func (s *Server) handleExerciseHistory(w http.ResponseWriter, r *http.Request) {
	count, err := intParam(r, "count", progress.DefaultHistoryCount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, found := snap.Exercises[id]; !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "exercise not found"})
		return
	}
	history := []progress.SessionSummary{}
	for sum := range progress.ExerciseHistory(snap, id, count) {
		history = append(history, sum)
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleProgression(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, found := snap.Exercises[id]; !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "exercise not found"})
		return
	}
	writeJSON(w, http.StatusOK, progress.Progression(snap, id))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	list := progress.SessionHistory(snap, limit)
	if list == nil {
		list = []progress.SessionListItem{}
	}
	writeJSON(w, http.StatusOK, list)
}

// sessionDetail is a session with its sets.
type sessionDetail struct {
	models.Session
	Sets []models.Set `json:"sets"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sets, err := s.store.SessionSets(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sets == nil {
		sets = []models.Set{}
	}
	writeJSON(w, http.StatusOK, sessionDetail{Session: sess, Sets: sets})
}

func (s *Server) handleSessionVolume(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, found := snap.Sessions[id]; !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, progress.CompareVolume(snap, id))
}

// handleCalendar serves the month grid. ?month=YYYY-MM picks a month other
// than the current one.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := s.clock.Now()
	year, month := now.Year(), now.Month()
	if m := r.URL.Query().Get("month"); m != "" {
		t, err := time.Parse("2006-01", m)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "month must be YYYY-MM"})
			return
		}
		year, month = t.Year(), t.Month()
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, progress.Calendar(snap, year, month, now))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, progress.Stats(snap))
}

// writeError maps domain errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, logbook.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, logbook.ErrSessionInProgress),
		errors.Is(err, logbook.ErrNoActiveSession),
		errors.Is(err, storage.ErrConflict):
		status = http.StatusConflict
	default:
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
