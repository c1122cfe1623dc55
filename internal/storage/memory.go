package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/meltforce/tinylifts/internal/models"
)

// Memory is an in-process Store. All mutations take the write lock, reads
// copy under the read lock.
type Memory struct {
	mu        sync.RWMutex
	exercises map[string]models.Exercise
	workouts  map[string]models.Workout
	sessions  map[string]models.Session
	sets      []models.Set
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		exercises: make(map[string]models.Exercise),
		workouts:  make(map[string]models.Workout),
		sessions:  make(map[string]models.Session),
	}
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func (m *Memory) Snapshot(_ context.Context) (models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := models.NewSnapshot()
	for id, ex := range m.exercises {
		snap.Exercises[id] = ex
	}
	for id, w := range m.workouts {
		w.Exercises = slices.Clone(w.Exercises)
		snap.Workouts[id] = w
	}
	for id, s := range m.sessions {
		snap.Sessions[id] = s
	}
	snap.Sets = slices.Clone(m.sets)
	return snap, nil
}

func (m *Memory) ListExercises(_ context.Context) ([]models.Exercise, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.Exercise, 0, len(m.exercises))
	for _, ex := range m.exercises {
		result = append(result, ex)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) GetExercise(_ context.Context, id string) (models.Exercise, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ex, ok := m.exercises[id]
	if !ok {
		return models.Exercise{}, fmt.Errorf("exercise %s: %w", id, ErrNotFound)
	}
	return ex, nil
}

func (m *Memory) InsertExercise(_ context.Context, ex models.Exercise) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.exercises[ex.ID]; ok {
		return fmt.Errorf("exercise %s: %w", ex.ID, ErrConflict)
	}
	m.exercises[ex.ID] = withDefaults(ex)
	return nil
}

func (m *Memory) UpdateExercise(_ context.Context, ex models.Exercise) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.exercises[ex.ID]; !ok {
		return fmt.Errorf("exercise %s: %w", ex.ID, ErrNotFound)
	}
	m.exercises[ex.ID] = withDefaults(ex)
	return nil
}

func (m *Memory) ListWorkouts(_ context.Context) ([]models.Workout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.Workout, 0, len(m.workouts))
	for _, w := range m.workouts {
		w.Exercises = slices.Clone(w.Exercises)
		result = append(result, w)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) GetWorkout(_ context.Context, id string) (models.Workout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.workouts[id]
	if !ok {
		return models.Workout{}, fmt.Errorf("workout %s: %w", id, ErrNotFound)
	}
	w.Exercises = slices.Clone(w.Exercises)
	return w, nil
}

func (m *Memory) InsertWorkout(_ context.Context, w models.Workout) error {
	if err := validateWorkout(w); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.workouts[w.ID]; ok {
		return fmt.Errorf("workout %s: %w", w.ID, ErrConflict)
	}
	if w.Type == "" {
		w.Type = "program"
	}
	links := make([]models.WorkoutExercise, len(w.Exercises))
	for i, we := range w.Exercises {
		we.WorkoutID = w.ID
		links[i] = we
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].Order < links[j].Order })
	w.Exercises = links
	m.workouts[w.ID] = w
	return nil
}

func (m *Memory) CreateSession(_ context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("session %s: %w", s.ID, ErrConflict)
	}
	if s.Status == "" {
		s.Status = models.StatusActive
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *Memory) GetSession(_ context.Context, id string) (models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return models.Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s, nil
}

func (m *Memory) LatestActiveSession(_ context.Context) (models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest models.Session
	found := false
	for _, s := range m.sessions {
		if s.Status != models.StatusActive {
			continue
		}
		if !found || s.StartTime.After(latest.StartTime) ||
			(s.StartTime.Equal(latest.StartTime) && strings.Compare(s.ID, latest.ID) > 0) {
			latest = s
			found = true
		}
	}
	if !found {
		return models.Session{}, fmt.Errorf("active session: %w", ErrNotFound)
	}
	return latest, nil
}

func (m *Memory) CompleteSession(_ context.Context, id string, end time.Time, volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.Status != models.StatusActive {
		return fmt.Errorf("active session %s: %w", id, ErrNotFound)
	}
	s.EndTime = end
	s.TotalVolume = volume
	s.Status = models.StatusCompleted
	m.sessions[id] = s
	return nil
}

func (m *Memory) DiscardSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.Status != models.StatusActive {
		return fmt.Errorf("active session %s: %w", id, ErrNotFound)
	}
	m.sets = slices.DeleteFunc(m.sets, func(set models.Set) bool { return set.SessionID == id })
	delete(m.sessions, id)
	return nil
}

func (m *Memory) CreateSet(_ context.Context, set models.Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[set.SessionID]; !ok {
		return fmt.Errorf("session %s: %w", set.SessionID, ErrNotFound)
	}
	for _, existing := range m.sets {
		if existing.ID == set.ID ||
			(existing.SessionID == set.SessionID && existing.ExerciseID == set.ExerciseID && existing.SetNumber == set.SetNumber) {
			return fmt.Errorf("set %s #%d: %w", set.ExerciseID, set.SetNumber, ErrConflict)
		}
	}
	if set.SetNumber == 0 {
		set.SetNumber = 1
	}
	m.sets = append(m.sets, set)
	return nil
}

func (m *Memory) CountSets(_ context.Context, sessionID, exerciseID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, s := range m.sets {
		if s.SessionID == sessionID && s.ExerciseID == exerciseID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) SessionSets(_ context.Context, sessionID string) ([]models.Set, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.Set
	for _, s := range m.sets {
		if s.SessionID == sessionID {
			result = append(result, s)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].SetNumber < result[j].SetNumber
	})
	return result, nil
}
