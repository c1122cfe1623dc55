package models

import (
	"time"
)

// Session statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Defaults applied when an exercise row leaves a field unset.
const (
	DefaultTargetReps = 5
	DefaultTargetSets = 5
	DefaultWeightKg   = 20
)

// Exercise is a row of the exercises table.
type Exercise struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	MuscleGroup   string  `json:"muscle_group"`
	TargetReps    int     `json:"target_reps"`
	TargetSets    int     `json:"target_sets"`
	DefaultWeight float64 `json:"default_weight"`
}

// EffectiveCategory returns the progression category, falling back to upper.
func (e Exercise) EffectiveCategory() string {
	c, _ := NormalizeCategory(e.Category)
	return c
}

// EffectiveTargetReps returns TargetReps, or the default when unset.
func (e Exercise) EffectiveTargetReps() int {
	if e.TargetReps <= 0 {
		return DefaultTargetReps
	}
	return e.TargetReps
}

// EffectiveTargetSets returns TargetSets, or the default when unset.
func (e Exercise) EffectiveTargetSets() int {
	if e.TargetSets <= 0 {
		return DefaultTargetSets
	}
	return e.TargetSets
}

// EffectiveDefaultWeight returns DefaultWeight, or 20 kg when unset.
func (e Exercise) EffectiveDefaultWeight() float64 {
	if e.DefaultWeight <= 0 {
		return DefaultWeightKg
	}
	return e.DefaultWeight
}

// Workout is a row of the workouts table together with its ordered exercise links.
type Workout struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Exercises []WorkoutExercise `json:"exercises"`
}

// ExerciseIDs returns the linked exercise IDs in workout order.
func (w Workout) ExerciseIDs() []string {
	ids := make([]string, 0, len(w.Exercises))
	for _, we := range w.Exercises {
		ids = append(ids, we.ExerciseID)
	}
	return ids
}

// HasExercise reports whether exerciseID is part of the workout.
func (w Workout) HasExercise(exerciseID string) bool {
	for _, we := range w.Exercises {
		if we.ExerciseID == exerciseID {
			return true
		}
	}
	return false
}

// WorkoutExercise is a row of the workout_exercises join table.
type WorkoutExercise struct {
	ID         string `json:"id"`
	WorkoutID  string `json:"workout_id"`
	ExerciseID string `json:"exercise_id"`
	Order      int    `json:"order"`
}

// Session is a row of the sessions table. A zero EndTime means the session
// has not ended.
type Session struct {
	ID          string    `json:"id"`
	WorkoutID   string    `json:"workout_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	TotalVolume float64   `json:"total_volume"`
	Status      string    `json:"status"`
}

// Completed reports whether the session reached the completed status.
func (s Session) Completed() bool {
	return s.Status == StatusCompleted
}

// Duration returns end minus start for ended sessions, zero otherwise.
func (s Session) Duration() time.Duration {
	if s.EndTime.IsZero() || s.EndTime.Before(s.StartTime) {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// Set is a row of the sets table.
type Set struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	ExerciseID string    `json:"exercise_id"`
	Weight     float64   `json:"weight"`
	Reps       int       `json:"reps"`
	Timestamp  time.Time `json:"timestamp"`
	SetNumber  int       `json:"set_number"`
}

// Volume returns weight x reps.
func (s Set) Volume() float64 {
	return s.Weight * float64(s.Reps)
}

// Millis converts t to epoch milliseconds, mapping the zero time to 0.
func Millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromMillis converts epoch milliseconds to a UTC time, mapping 0 to the zero time.
func FromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
