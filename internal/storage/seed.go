package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meltforce/tinylifts/internal/models"
)

// Seed IDs.
const (
	ExerciseSquat    = "ex-squat"
	ExerciseBench    = "ex-bench"
	ExerciseDeadlift = "ex-deadlift"
	ExerciseOHP      = "ex-ohp"
	ExerciseRow      = "ex-row"

	WorkoutA = "wk-a"
	WorkoutB = "wk-b"
)

// SeedExercises are the exercises inserted into an empty store.
var SeedExercises = []models.Exercise{
	{ID: ExerciseSquat, Name: "Squat", Category: models.CategoryLower, MuscleGroup: "Quadriceps, Glutes", TargetReps: 5, TargetSets: 5},
	{ID: ExerciseBench, Name: "Bench Press", Category: models.CategoryUpper, MuscleGroup: "Chest, Triceps", TargetReps: 5, TargetSets: 5},
	{ID: ExerciseDeadlift, Name: "Deadlift", Category: models.CategoryDeadlift, MuscleGroup: "Back, Hamstrings", TargetReps: 5, TargetSets: 1},
	{ID: ExerciseOHP, Name: "Overhead Press", Category: models.CategoryUpper, MuscleGroup: "Shoulders, Triceps", TargetReps: 5, TargetSets: 5},
	{ID: ExerciseRow, Name: "Barbell Row", Category: models.CategoryUpper, MuscleGroup: "Back, Biceps", TargetReps: 5, TargetSets: 5},
}

// SeedWorkouts are the two alternating programs inserted into an empty store.
var SeedWorkouts = []models.Workout{
	{
		ID: WorkoutA, Name: "Workout A", Type: "program",
		Exercises: []models.WorkoutExercise{
			{ID: "we-a1", ExerciseID: ExerciseSquat, Order: 1},
			{ID: "we-a2", ExerciseID: ExerciseBench, Order: 2},
			{ID: "we-a3", ExerciseID: ExerciseRow, Order: 3},
		},
	},
	{
		ID: WorkoutB, Name: "Workout B", Type: "program",
		Exercises: []models.WorkoutExercise{
			{ID: "we-b1", ExerciseID: ExerciseSquat, Order: 1},
			{ID: "we-b2", ExerciseID: ExerciseOHP, Order: 2},
			{ID: "we-b3", ExerciseID: ExerciseDeadlift, Order: 3},
		},
	},
}

// SeedIfEmpty inserts the seed exercises and workouts when the store has no
// exercises yet. Returns true if it seeded.
func SeedIfEmpty(ctx context.Context, s Store, log *slog.Logger) (bool, error) {
	existing, err := s.ListExercises(ctx)
	if err != nil {
		return false, fmt.Errorf("listing exercises: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	for _, ex := range SeedExercises {
		if err := s.InsertExercise(ctx, ex); err != nil {
			return false, fmt.Errorf("seeding exercise %s: %w", ex.ID, err)
		}
	}
	for _, w := range SeedWorkouts {
		if err := s.InsertWorkout(ctx, w); err != nil {
			return false, fmt.Errorf("seeding workout %s: %w", w.ID, err)
		}
	}
	log.Info("seeded store", "exercises", len(SeedExercises), "workouts", len(SeedWorkouts))
	return true, nil
}
