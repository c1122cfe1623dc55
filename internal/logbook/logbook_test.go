package logbook

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/meltforce/tinylifts/internal/feedback"
	"github.com/meltforce/tinylifts/internal/metrics"
	"github.com/meltforce/tinylifts/internal/models"
	"github.com/meltforce/tinylifts/internal/storage"
	"github.com/meltforce/tinylifts/internal/timing"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var start = time.Date(2026, 10, 19, 17, 30, 0, 0, time.UTC)

type harness struct {
	lb      *Logbook
	store   *storage.Memory
	clock   *timing.ManualClock
	haptics *feedback.Recorder
	metrics *metrics.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := storage.NewMemory()
	_, err := storage.SeedIfEmpty(ctx, store, log)
	require.NoError(t, err)

	h := &harness{
		store:   store,
		clock:   timing.NewManualClock(start),
		haptics: &feedback.Recorder{},
		metrics: metrics.NewTestManager(),
	}
	h.lb = New(Config{
		Store:   store,
		Clock:   h.clock,
		Haptics: h.haptics,
		Metrics: h.metrics,
		Logger:  log,
	})
	t.Cleanup(h.lb.Close)
	return h
}

func (h *harness) logSet(t *testing.T, exerciseID string) models.Set {
	t.Helper()
	set, ok, err := h.lb.LogSet(context.Background(), exerciseID)
	require.NoError(t, err)
	require.True(t, ok)
	h.clock.Advance(90 * time.Second)
	return set
}

// TestSetNumbering checks set numbers run 1..K per exercise in call order.
func TestSetNumbering(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess, err := h.lb.StartSession(ctx, storage.WorkoutA)
	require.NoError(t, err)

	var squat, bench []int
	for range 5 {
		squat = append(squat, h.logSet(t, storage.ExerciseSquat).SetNumber)
		if len(bench) < 2 {
			bench = append(bench, h.logSet(t, storage.ExerciseBench).SetNumber)
		}
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, squat)
	assert.Equal(t, []int{1, 2}, bench)

	sets, err := h.store.SessionSets(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, sets, 7)
	for _, s := range sets {
		assert.Equal(t, sess.ID, s.SessionID)
	}
}

func TestLogSetWithoutSession(t *testing.T) {
	h := newHarness(t)
	set, ok, err := h.lb.LogSet(context.Background(), storage.ExerciseSquat)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, models.Set{}, set)
	assert.Empty(t, h.haptics.Vibrations())
	assert.Equal(t, timing.RestIdle, h.lb.RestTimer().State().Status)

	snap, err := h.store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Sets)
}

// TestLogSetInputAndIntensity covers the input fallback, the rest intensity
// derived from the heaviest set and the haptic pulse.
func TestLogSetInputAndIntensity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.lb.StartSession(ctx, storage.WorkoutA)
	require.NoError(t, err)

	in, err := h.lb.Input(ctx, storage.ExerciseSquat)
	require.NoError(t, err)
	assert.Equal(t, Input{Weight: models.DefaultWeightKg, Reps: 5}, in)

	set, _, err := h.lb.LogSet(ctx, storage.ExerciseSquat)
	require.NoError(t, err)
	assert.Equal(t, 20.0, set.Weight)
	assert.Equal(t, 5, set.Reps)
	assert.True(t, set.Timestamp.Equal(start))
	// First set is its own maximum.
	assert.Equal(t, timing.Heavy, h.lb.RestTimer().State().Intensity)

	require.NoError(t, h.lb.SetInput(storage.ExerciseSquat, Input{Weight: 100, Reps: 5}))
	h.logSet(t, storage.ExerciseSquat)

	require.NoError(t, h.lb.SetInput(storage.ExerciseSquat, Input{Weight: 50, Reps: 8}))
	_, _, err = h.lb.LogSet(ctx, storage.ExerciseSquat)
	require.NoError(t, err)
	rest := h.lb.RestTimer().State()
	assert.Equal(t, timing.Light, rest.Intensity)
	assert.Equal(t, 60, rest.TotalSeconds)
	assert.Equal(t, timing.RestRunning, rest.Status)

	require.NoError(t, h.lb.SetInput(storage.ExerciseSquat, Input{Weight: 80, Reps: 5}))
	_, _, err = h.lb.LogSet(ctx, storage.ExerciseSquat)
	require.NoError(t, err)
	assert.Equal(t, 120, h.lb.RestTimer().State().TotalSeconds)

	pulses := 0
	for _, v := range h.haptics.Vibrations() {
		if len(v) == 1 && v[0] == feedback.PulseDuration {
			pulses++
		}
	}
	assert.Equal(t, 4, pulses)
	assert.Equal(t, 20.0*5+100*5+50*8+80*5, testutil.ToFloat64(h.metrics.CounterVolume))
}

func TestSetInputValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.lb.SetInput(storage.ExerciseBench, Input{Weight: 60, Reps: 5}))

	for _, bad := range []Input{
		{Weight: -2.5, Reps: 5},
		{Weight: math.NaN(), Reps: 5},
		{Weight: math.Inf(1), Reps: 5},
		{Weight: 60, Reps: -1},
		{Weight: MaxWeight + 1, Reps: 5},
	} {
		assert.ErrorIs(t, h.lb.SetInput(storage.ExerciseBench, bad), ErrInvalidInput)
	}

	in, err := h.lb.Input(ctx, storage.ExerciseBench)
	require.NoError(t, err)
	assert.Equal(t, Input{Weight: 60, Reps: 5}, in)

	_, err = h.lb.Input(ctx, "ex-missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// TestEndSessionDiscardRule covers both outcomes of ending a session.
func TestEndSessionDiscardRule(t *testing.T) {
	ctx := context.Background()

	t.Run("no sets", func(t *testing.T) {
		h := newHarness(t)
		sess, err := h.lb.StartSession(ctx, storage.WorkoutA)
		require.NoError(t, err)

		res, err := h.lb.EndSession(ctx)
		require.NoError(t, err)
		assert.False(t, res.Completed)
		_, err = h.store.GetSession(ctx, sess.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CounterSessionsEnded.WithLabelValues("discarded")))
	})

	t.Run("zero volume", func(t *testing.T) {
		h := newHarness(t)
		sess, err := h.lb.StartSession(ctx, storage.WorkoutA)
		require.NoError(t, err)
		require.NoError(t, h.lb.SetInput(storage.ExerciseRow, Input{Weight: 0, Reps: 10}))
		h.logSet(t, storage.ExerciseRow)
		h.logSet(t, storage.ExerciseRow)

		res, err := h.lb.EndSession(ctx)
		require.NoError(t, err)
		assert.False(t, res.Completed)
		assert.Equal(t, 2, res.SetCount)

		snap, err := h.store.Snapshot(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap.Sessions)
		assert.Empty(t, snap.Sets)
		_, err = h.store.GetSession(ctx, sess.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("completed", func(t *testing.T) {
		h := newHarness(t)
		sess, err := h.lb.StartSession(ctx, storage.WorkoutA)
		require.NoError(t, err)
		require.NoError(t, h.lb.SetInput(storage.ExerciseSquat, Input{Weight: 100, Reps: 5}))
		h.logSet(t, storage.ExerciseSquat)
		h.logSet(t, storage.ExerciseSquat)
		require.NoError(t, h.lb.SetInput(storage.ExerciseBench, Input{Weight: 62.5, Reps: 4}))
		h.logSet(t, storage.ExerciseBench)

		res, err := h.lb.EndSession(ctx)
		require.NoError(t, err)
		assert.True(t, res.Completed)

		got, err := h.store.GetSession(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
		assert.Equal(t, 100.0*5*2+62.5*4, got.TotalVolume)
		assert.True(t, got.EndTime.Equal(start.Add(3*90*time.Second)))
		assert.Equal(t, res.Session.TotalVolume, got.TotalVolume)
		assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.GaugeActiveSession))
	})
}

func TestEndSessionResetsTimers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.lb.StartSession(ctx, storage.WorkoutB)
	require.NoError(t, err)
	h.lb.Metronome().Start()
	_, _, err = h.lb.LogSet(ctx, storage.ExerciseOHP)
	require.NoError(t, err)
	require.Equal(t, 2, h.clock.Pending())

	_, err = h.lb.EndSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, timing.RestIdle, h.lb.RestTimer().State().Status)
	assert.False(t, h.lb.Metronome().State().Active)
	assert.Equal(t, 0, h.clock.Pending())

	h.lb.Metronome().Start()
	_, err = h.lb.EndSession(ctx)
	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.False(t, h.lb.Metronome().State().Active)
}

func TestStartSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.lb.StartSession(ctx, "wk-missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	sess, err := h.lb.StartSession(ctx, storage.WorkoutB)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, sess.Status)
	assert.True(t, sess.StartTime.Equal(start))
	assert.Zero(t, sess.TotalVolume)
	assert.True(t, sess.EndTime.IsZero())

	_, err = h.lb.StartSession(ctx, storage.WorkoutA)
	assert.ErrorIs(t, err, ErrSessionInProgress)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CounterSessionsStarted))
}

// TestNewWithoutMetrics runs a session on a logbook built without a Manager.
func TestNewWithoutMetrics(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := storage.SeedIfEmpty(ctx, store, log)
	require.NoError(t, err)

	clock := timing.NewManualClock(start)
	lb := New(Config{Store: store, Clock: clock, Haptics: feedback.Nop{}, Audio: feedback.Nop{}, Logger: log})
	t.Cleanup(lb.Close)

	_, err = lb.StartSession(ctx, storage.WorkoutA)
	require.NoError(t, err)
	_, ok, err := lb.LogSet(ctx, storage.ExerciseSquat)
	require.NoError(t, err)
	require.True(t, ok)
	res, err := lb.EndSession(ctx)
	require.NoError(t, err)
	assert.True(t, res.Completed)
}

// TestRestore picks up a session left active by a previous process.
func TestRestore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ok, err := h.lb.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h.store.CreateSession(ctx, models.Session{
		ID: "ses-old", WorkoutID: storage.WorkoutA, StartTime: start.Add(-time.Hour), Status: models.StatusActive,
	}))
	ok, err = h.lb.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	set := h.logSet(t, storage.ExerciseSquat)
	assert.Equal(t, "ses-old", set.SessionID)
}

func TestActiveView(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, ok, err := h.lb.Active(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.lb.StartSession(ctx, storage.WorkoutA)
	require.NoError(t, err)
	require.NoError(t, h.lb.SetInput(storage.ExerciseBench, Input{Weight: 60, Reps: 5}))
	h.logSet(t, storage.ExerciseBench)
	_, _, err = h.lb.LogSet(ctx, storage.ExerciseBench)
	require.NoError(t, err)
	h.clock.Advance(5 * time.Second)

	view, ok, err := h.lb.Active(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Workout A", view.WorkoutName)
	assert.Equal(t, "01:35", view.Elapsed)
	assert.Equal(t, 95, view.ElapsedSec)
	require.Len(t, view.Exercises, 3)
	assert.Equal(t, storage.ExerciseSquat, view.Exercises[0].Exercise.ID)
	assert.Equal(t, Input{Weight: 20, Reps: 5}, view.Exercises[0].Input)
	assert.Empty(t, view.Exercises[0].Sets)

	bench := view.Exercises[1]
	assert.Equal(t, storage.ExerciseBench, bench.Exercise.ID)
	require.Len(t, bench.Sets, 2)
	assert.Equal(t, []int{1, 2}, []int{bench.Sets[0].SetNumber, bench.Sets[1].SetNumber})
	assert.Equal(t, 600.0, view.Volume.CurrentVolume)
	assert.Equal(t, timing.RestRunning, view.Rest.Status)
	assert.Equal(t, 235, view.Rest.SecondsLeft)
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00:00", FormatElapsed(0))
	assert.Equal(t, "00:59", FormatElapsed(59*time.Second+900*time.Millisecond))
	assert.Equal(t, "61:01", FormatElapsed(time.Hour+61*time.Second))
	assert.Equal(t, "125:00", FormatElapsed(125*time.Minute))
}

func TestUpdateExercise(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	w, reps := 42.5, 3
	ex, err := h.lb.UpdateExercise(ctx, storage.ExerciseOHP, ExerciseSettings{DefaultWeight: &w, TargetReps: &reps})
	require.NoError(t, err)
	assert.Equal(t, 42.5, ex.DefaultWeight)
	assert.Equal(t, 3, ex.TargetReps)
	assert.Equal(t, 5, ex.TargetSets)

	in, err := h.lb.Input(ctx, storage.ExerciseOHP)
	require.NoError(t, err)
	assert.Equal(t, Input{Weight: 42.5, Reps: 3}, in)

	zero, tooMany, neg := 0, 11, -1.0
	_, err = h.lb.UpdateExercise(ctx, storage.ExerciseOHP, ExerciseSettings{TargetReps: &zero})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.lb.UpdateExercise(ctx, storage.ExerciseOHP, ExerciseSettings{TargetSets: &tooMany})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.lb.UpdateExercise(ctx, storage.ExerciseOHP, ExerciseSettings{DefaultWeight: &neg})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.lb.UpdateExercise(ctx, "ex-missing", ExerciseSettings{TargetReps: &reps})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := h.store.GetExercise(ctx, storage.ExerciseOHP)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TargetReps)
}

// TestRestTimerCompletionMetric counts countdowns that run to zero.
func TestRestTimerCompletionMetric(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.lb.StartSession(ctx, storage.WorkoutA)
	require.NoError(t, err)
	_, _, err = h.lb.LogSet(ctx, storage.ExerciseSquat)
	require.NoError(t, err)

	h.clock.Advance(240 * time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CounterRestTimerFinished))
	assert.Len(t, h.haptics.Vibrations(), 2)
}
