package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meltforce/tinylifts/internal/models"
)

var (
	// ErrNotFound is returned when a referenced row does not exist, or when a
	// session-state transition targets a session that is not active.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would break a uniqueness rule
	// (set number per session/exercise, exercise order per workout, IDs).
	ErrConflict = errors.New("conflict")
)

// Store is the typed repository the rest of the application depends on.
// Implementations persist every mutation before returning.
type Store interface {
	// Snapshot returns a consistent copy of all tables.
	Snapshot(ctx context.Context) (models.Snapshot, error)

	ListExercises(ctx context.Context) ([]models.Exercise, error)
	GetExercise(ctx context.Context, id string) (models.Exercise, error)
	InsertExercise(ctx context.Context, ex models.Exercise) error
	UpdateExercise(ctx context.Context, ex models.Exercise) error

	ListWorkouts(ctx context.Context) ([]models.Workout, error)
	GetWorkout(ctx context.Context, id string) (models.Workout, error)
	// InsertWorkout stores the workout and its exercise links.
	InsertWorkout(ctx context.Context, w models.Workout) error

	CreateSession(ctx context.Context, s models.Session) error
	GetSession(ctx context.Context, id string) (models.Session, error)
	// LatestActiveSession returns the most recently started active session.
	LatestActiveSession(ctx context.Context) (models.Session, error)
	// CompleteSession marks an active session completed.
	CompleteSession(ctx context.Context, id string, end time.Time, volume float64) error
	// DiscardSession deletes an active session and all of its sets.
	DiscardSession(ctx context.Context, id string) error

	CreateSet(ctx context.Context, set models.Set) error
	CountSets(ctx context.Context, sessionID, exerciseID string) (int, error)
	// SessionSets returns a session's sets ordered by timestamp then set number.
	SessionSets(ctx context.Context, sessionID string) ([]models.Set, error)

	Close() error
}

// Compile-time checks.
var (
	_ Store = (*Memory)(nil)
	_ Store = (*SQLite)(nil)
	_ Store = (*DB)(nil)
)

// rowScanner is satisfied by both pgx.Rows and *sql.Rows.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSessions(rows rowScanner) ([]models.Session, error) {
	var result []models.Session
	for rows.Next() {
		var s models.Session
		var start, end int64
		if err := rows.Scan(&s.ID, &s.WorkoutID, &start, &end, &s.TotalVolume, &s.Status); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		s.StartTime = models.FromMillis(start)
		s.EndTime = models.FromMillis(end)
		result = append(result, s)
	}
	return result, rows.Err()
}

func scanSets(rows rowScanner) ([]models.Set, error) {
	var result []models.Set
	for rows.Next() {
		var s models.Set
		var ts int64
		if err := rows.Scan(&s.ID, &s.SessionID, &s.ExerciseID, &s.Weight, &s.Reps, &ts, &s.SetNumber); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		s.Timestamp = models.FromMillis(ts)
		result = append(result, s)
	}
	return result, rows.Err()
}

func scanExercises(rows rowScanner) ([]models.Exercise, error) {
	var result []models.Exercise
	for rows.Next() {
		var e models.Exercise
		if err := rows.Scan(&e.ID, &e.Name, &e.Category, &e.MuscleGroup, &e.TargetReps, &e.TargetSets, &e.DefaultWeight); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// workoutRow is one row of workouts LEFT JOIN workout_exercises.
type workoutRow struct {
	id, name, typ string
	linkID        *string
	exerciseID    *string
	order         *int
}

// scanWorkouts folds joined rows (ordered by workout, then link order) into workouts.
func scanWorkouts(rows rowScanner) ([]models.Workout, error) {
	var result []models.Workout
	index := make(map[string]int)
	for rows.Next() {
		var r workoutRow
		if err := rows.Scan(&r.id, &r.name, &r.typ, &r.linkID, &r.exerciseID, &r.order); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		i, ok := index[r.id]
		if !ok {
			i = len(result)
			index[r.id] = i
			result = append(result, models.Workout{ID: r.id, Name: r.name, Type: r.typ})
		}
		if r.linkID != nil && r.exerciseID != nil && r.order != nil {
			result[i].Exercises = append(result[i].Exercises, models.WorkoutExercise{
				ID:         *r.linkID,
				WorkoutID:  r.id,
				ExerciseID: *r.exerciseID,
				Order:      *r.order,
			})
		}
	}
	return result, rows.Err()
}

func validateWorkout(w models.Workout) error {
	seen := make(map[int]bool, len(w.Exercises))
	for _, we := range w.Exercises {
		if seen[we.Order] {
			return fmt.Errorf("workout %s: duplicate exercise order %d: %w", w.ID, we.Order, ErrConflict)
		}
		seen[we.Order] = true
	}
	return nil
}

func withDefaults(ex models.Exercise) models.Exercise {
	if ex.Category == "" {
		ex.Category = models.CategoryUpper
	}
	if ex.TargetReps == 0 {
		ex.TargetReps = models.DefaultTargetReps
	}
	if ex.TargetSets == 0 {
		ex.TargetSets = models.DefaultTargetSets
	}
	return ex
}
