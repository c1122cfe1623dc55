package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meltforce/tinylifts/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 5, 18, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestMemoryStore runs the store suite against the in-memory implementation.
func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewMemory()
	})
}

// TestSQLiteStore runs the store suite against a temporary SQLite file,
// exercising the embedded migrations.
func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "tinylifts.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

// TestPostgresStore runs the store suite against a real Postgres when
// TINYLIFTS_TEST_POSTGRES_DSN is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TINYLIFTS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TINYLIFTS_TEST_POSTGRES_DSN not set")
	}
	require.NoError(t, RunMigrations(dsn))

	runStoreSuite(t, func(t *testing.T) Store {
		ctx := context.Background()
		db, err := New(ctx, dsn)
		require.NoError(t, err)
		_, err = db.Pool.Exec(ctx, `TRUNCATE sets, sessions, workout_exercises, workouts, exercises`)
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		return db
	})
}

func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	seeded := func(t *testing.T) Store {
		t.Helper()
		s := newStore(t)
		did, err := SeedIfEmpty(ctx, s, quietLogger())
		require.NoError(t, err)
		require.True(t, did)
		return s
	}

	t.Run("seed is idempotent", func(t *testing.T) {
		s := seeded(t)
		did, err := SeedIfEmpty(ctx, s, quietLogger())
		require.NoError(t, err)
		assert.False(t, did)

		exercises, err := s.ListExercises(ctx)
		require.NoError(t, err)
		assert.Len(t, exercises, len(SeedExercises))
	})

	t.Run("workout exercises come back in order", func(t *testing.T) {
		s := seeded(t)
		w, err := s.GetWorkout(ctx, WorkoutB)
		require.NoError(t, err)
		assert.Equal(t, "Workout B", w.Name)
		assert.Equal(t, []string{ExerciseSquat, ExerciseOHP, ExerciseDeadlift}, w.ExerciseIDs())

		all, err := s.ListWorkouts(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, WorkoutA, all[0].ID)
		assert.Len(t, all[0].Exercises, 3)
	})

	t.Run("duplicate workout order is a conflict", func(t *testing.T) {
		s := newStore(t)
		err := s.InsertWorkout(ctx, models.Workout{
			ID: "wk-x", Name: "X",
			Exercises: []models.WorkoutExercise{
				{ID: "l1", ExerciseID: "a", Order: 1},
				{ID: "l2", ExerciseID: "b", Order: 1},
			},
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("missing rows are ErrNotFound", func(t *testing.T) {
		s := seeded(t)
		_, err := s.GetExercise(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetWorkout(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetSession(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.LatestActiveSession(ctx)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.UpdateExercise(ctx, models.Exercise{ID: "nope"}), ErrNotFound)
	})

	t.Run("update exercise settings", func(t *testing.T) {
		s := seeded(t)
		ex, err := s.GetExercise(ctx, ExerciseBench)
		require.NoError(t, err)
		ex.DefaultWeight = 42.5
		ex.TargetSets = 3
		require.NoError(t, s.UpdateExercise(ctx, ex))

		got, err := s.GetExercise(ctx, ExerciseBench)
		require.NoError(t, err)
		assert.Equal(t, 42.5, got.DefaultWeight)
		assert.Equal(t, 3, got.TargetSets)
		assert.Equal(t, 5, got.TargetReps)
	})

	t.Run("session completes once", func(t *testing.T) {
		s := seeded(t)
		sess := models.Session{ID: "ses-1", WorkoutID: WorkoutA, StartTime: t0, Status: models.StatusActive}
		require.NoError(t, s.CreateSession(ctx, sess))
		require.NoError(t, s.CreateSet(ctx, models.Set{
			ID: "set-1", SessionID: "ses-1", ExerciseID: ExerciseSquat, Weight: 100, Reps: 5, Timestamp: t0.Add(time.Minute), SetNumber: 1,
		}))

		active, err := s.LatestActiveSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ses-1", active.ID)

		end := t0.Add(45 * time.Minute)
		require.NoError(t, s.CompleteSession(ctx, "ses-1", end, 500))

		got, err := s.GetSession(ctx, "ses-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
		assert.True(t, got.EndTime.Equal(end))
		assert.True(t, got.StartTime.Equal(t0))
		assert.Equal(t, 500.0, got.TotalVolume)

		assert.ErrorIs(t, s.CompleteSession(ctx, "ses-1", end, 1), ErrNotFound)
		assert.ErrorIs(t, s.DiscardSession(ctx, "ses-1"), ErrNotFound)
		_, err = s.LatestActiveSession(ctx)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("discard removes session and sets", func(t *testing.T) {
		s := seeded(t)
		require.NoError(t, s.CreateSession(ctx, models.Session{ID: "ses-1", WorkoutID: WorkoutA, StartTime: t0}))
		require.NoError(t, s.CreateSession(ctx, models.Session{ID: "ses-2", WorkoutID: WorkoutA, StartTime: t0.Add(time.Hour)}))
		for i, sid := range []string{"ses-1", "ses-1", "ses-2"} {
			n, err := s.CountSets(ctx, sid, ExerciseSquat)
			require.NoError(t, err)
			require.NoError(t, s.CreateSet(ctx, models.Set{
				ID: "set-" + string(rune('a'+i)), SessionID: sid, ExerciseID: ExerciseSquat,
				Weight: 0, Reps: 5, Timestamp: t0, SetNumber: n + 1,
			}))
		}

		require.NoError(t, s.DiscardSession(ctx, "ses-1"))

		_, err := s.GetSession(ctx, "ses-1")
		assert.ErrorIs(t, err, ErrNotFound)
		sets, err := s.SessionSets(ctx, "ses-1")
		require.NoError(t, err)
		assert.Empty(t, sets)

		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		assert.Len(t, snap.Sessions, 1)
		require.Len(t, snap.Sets, 1)
		assert.Equal(t, "ses-2", snap.Sets[0].SessionID)
	})

	t.Run("set numbers are unique per session and exercise", func(t *testing.T) {
		s := seeded(t)
		require.NoError(t, s.CreateSession(ctx, models.Session{ID: "ses-1", WorkoutID: WorkoutA, StartTime: t0}))
		set := models.Set{ID: "set-1", SessionID: "ses-1", ExerciseID: ExerciseBench, Weight: 60, Reps: 5, Timestamp: t0, SetNumber: 1}
		require.NoError(t, s.CreateSet(ctx, set))

		set.ID = "set-2"
		assert.ErrorIs(t, s.CreateSet(ctx, set), ErrConflict)

		set.ExerciseID = ExerciseRow
		assert.NoError(t, s.CreateSet(ctx, set))

		n, err := s.CountSets(ctx, "ses-1", ExerciseBench)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("set for unknown session is rejected", func(t *testing.T) {
		s := seeded(t)
		err := s.CreateSet(ctx, models.Set{ID: "set-1", SessionID: "ghost", ExerciseID: ExerciseBench, SetNumber: 1})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("snapshot carries all tables", func(t *testing.T) {
		s := seeded(t)
		require.NoError(t, s.CreateSession(ctx, models.Session{ID: "ses-1", WorkoutID: WorkoutB, StartTime: t0}))
		require.NoError(t, s.CreateSet(ctx, models.Set{ID: "set-1", SessionID: "ses-1", ExerciseID: ExerciseDeadlift, Weight: 140, Reps: 5, Timestamp: t0, SetNumber: 1}))
		require.NoError(t, s.CreateSet(ctx, models.Set{ID: "set-2", SessionID: "ses-1", ExerciseID: ExerciseDeadlift, Weight: 150, Reps: 3, Timestamp: t0.Add(time.Minute), SetNumber: 2}))

		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		assert.Len(t, snap.Exercises, 5)
		assert.Len(t, snap.Workouts, 2)
		assert.Equal(t, models.StatusActive, snap.Sessions["ses-1"].Status)
		require.Len(t, snap.Sets, 2)
		assert.Equal(t, "set-1", snap.Sets[0].ID)
		assert.Equal(t, 140.0*5+150*3, snap.SessionVolume("ses-1"))
		assert.Equal(t, models.CategoryDeadlift, snap.Exercises[ExerciseDeadlift].Category)
	})
}
