// Package logbook is the single writer of workout records. It starts and ends
// sessions, logs sets, and drives the rest timer and metronome that go with
// them.
package logbook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/meltforce/tinylifts/internal/feedback"
	"github.com/meltforce/tinylifts/internal/metrics"
	"github.com/meltforce/tinylifts/internal/models"
	"github.com/meltforce/tinylifts/internal/storage"
	"github.com/meltforce/tinylifts/internal/timing"
)

var (
	// ErrInvalidInput is returned for negative, non-finite or out-of-range
	// numbers. The previous value is kept.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSessionInProgress is returned by StartSession while another session
	// is active.
	ErrSessionInProgress = errors.New("session already in progress")
	// ErrNoActiveSession is returned by EndSession when nothing is active.
	ErrNoActiveSession = errors.New("no active session")
)

// Input bounds, matching the steppers of the logging screen.
const (
	MaxWeight     = 9999
	MaxReps       = 9999
	MaxTargetReps = 30
	MaxTargetSets = 10
)

// Input is the weight and reps the lifter has dialled in for an exercise.
type Input struct {
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

func (in Input) validate() error {
	if math.IsNaN(in.Weight) || math.IsInf(in.Weight, 0) || in.Weight < 0 || in.Weight > MaxWeight {
		return fmt.Errorf("weight %v: %w", in.Weight, ErrInvalidInput)
	}
	if in.Reps < 0 || in.Reps > MaxReps {
		return fmt.Errorf("reps %d: %w", in.Reps, ErrInvalidInput)
	}
	return nil
}

// Config wires a Logbook to its collaborators. Only Store is required.
type Config struct {
	Store   storage.Store
	Clock   timing.Clock
	Haptics feedback.Haptics
	Audio   feedback.Audio
	Metrics *metrics.Manager
	Logger  *slog.Logger
}

// Logbook serialises every mutation of the record store behind one mutex.
type Logbook struct {
	store     storage.Store
	clock     timing.Clock
	haptics   feedback.Haptics
	rest      *timing.RestTimer
	metronome *timing.Metronome
	metrics   *metrics.Manager
	log       *slog.Logger

	mu     sync.Mutex
	active *models.Session
	inputs map[string]Input
}

// New creates a Logbook with no active session. Call Restore to pick up a
// session left active by a previous run.
func New(cfg Config) *Logbook {
	if cfg.Clock == nil {
		cfg.Clock = timing.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewDiscardManager()
	}

	l := &Logbook{
		store:     cfg.Store,
		clock:     cfg.Clock,
		haptics:   feedback.NewSafeHaptics(cfg.Haptics, cfg.Logger),
		rest:      timing.NewRestTimer(cfg.Clock, cfg.Haptics, cfg.Logger),
		metronome: timing.NewMetronome(cfg.Clock, cfg.Audio, cfg.Logger),
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		inputs:    make(map[string]Input),
	}
	l.rest.OnComplete(l.metrics.CounterRestTimerFinished.Inc)
	return l
}

// RestTimer returns the rest timer driven by LogSet.
func (l *Logbook) RestTimer() *timing.RestTimer { return l.rest }

// Metronome returns the cadence metronome.
func (l *Logbook) Metronome() *timing.Metronome { return l.metronome }

// Close stops both timers.
func (l *Logbook) Close() {
	l.rest.Reset()
	l.metronome.Stop()
}

// Restore makes the most recently started active session in the store the
// current session. Returns false when there is none.
func (l *Logbook) Restore(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active != nil {
		return true, nil
	}
	s, err := l.store.LatestActiveSession(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("restoring session: %w", err)
	}
	l.active = &s
	l.metrics.GaugeActiveSession.Set(1)
	l.log.Info("restored active session", "session", s.ID, "workout", s.WorkoutID)
	return true, nil
}

// StartSession creates an active session for workoutID starting now.
func (l *Logbook) StartSession(ctx context.Context, workoutID string) (models.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active != nil {
		return models.Session{}, fmt.Errorf("starting session: %s: %w", l.active.ID, ErrSessionInProgress)
	}
	if _, err := l.store.GetWorkout(ctx, workoutID); err != nil {
		return models.Session{}, fmt.Errorf("starting session: %w", err)
	}

	s := models.Session{
		ID:        newID("ses"),
		WorkoutID: workoutID,
		StartTime: l.clock.Now(),
		Status:    models.StatusActive,
	}
	if err := l.store.CreateSession(ctx, s); err != nil {
		return models.Session{}, fmt.Errorf("creating session: %w", err)
	}
	l.active = &s
	clear(l.inputs)
	l.metrics.CounterSessionsStarted.Inc()
	l.metrics.GaugeActiveSession.Set(1)
	l.log.Info("session started", "session", s.ID, "workout", workoutID)
	return s, nil
}

// SetInput records the weight and reps to use for the next set of an
// exercise. Invalid values are rejected and the previous input is kept.
func (l *Logbook) SetInput(exerciseID string, in Input) error {
	if err := in.validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inputs[exerciseID] = in
	return nil
}

// Input returns the dialled-in input for an exercise, or the exercise's
// default weight and target reps when nothing was entered.
func (l *Logbook) Input(ctx context.Context, exerciseID string) (Input, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inputLocked(ctx, exerciseID)
}

func (l *Logbook) inputLocked(ctx context.Context, exerciseID string) (Input, error) {
	if in, ok := l.inputs[exerciseID]; ok {
		return in, nil
	}
	ex, err := l.store.GetExercise(ctx, exerciseID)
	if err != nil {
		return Input{}, fmt.Errorf("loading exercise: %w", err)
	}
	return defaultInput(ex), nil
}

func defaultInput(ex models.Exercise) Input {
	return Input{Weight: ex.EffectiveDefaultWeight(), Reps: ex.EffectiveTargetReps()}
}

// LogSet appends a set for exerciseID to the active session, starts the rest
// timer at an intensity derived from the session's heaviest set of that
// exercise, and pulses the haptics. Without an active session it does
// nothing and returns ok=false.
func (l *Logbook) LogSet(ctx context.Context, exerciseID string) (set models.Set, ok bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil {
		l.log.Debug("log set ignored, no active session", "exercise", exerciseID)
		return models.Set{}, false, nil
	}
	sessionID := l.active.ID

	in, err := l.inputLocked(ctx, exerciseID)
	if err != nil {
		return models.Set{}, false, err
	}
	n, err := l.store.CountSets(ctx, sessionID, exerciseID)
	if err != nil {
		return models.Set{}, false, fmt.Errorf("counting sets: %w", err)
	}

	set = models.Set{
		ID:         newID("set"),
		SessionID:  sessionID,
		ExerciseID: exerciseID,
		Weight:     in.Weight,
		Reps:       in.Reps,
		Timestamp:  l.clock.Now(),
		SetNumber:  n + 1,
	}
	if err := l.store.CreateSet(ctx, set); err != nil {
		return models.Set{}, false, fmt.Errorf("creating set: %w", err)
	}

	sets, err := l.store.SessionSets(ctx, sessionID)
	if err != nil {
		return models.Set{}, false, fmt.Errorf("loading session sets: %w", err)
	}
	heaviest := set.Weight
	for _, s := range sets {
		if s.ExerciseID == exerciseID {
			heaviest = max(heaviest, s.Weight)
		}
	}
	intensity := timing.ClassifyIntensity(set.Weight, heaviest)
	l.rest.Start(intensity)
	_ = l.haptics.Vibrate(feedback.PulseDuration)

	l.metrics.CounterSets.WithLabelValues(string(intensity)).Inc()
	l.metrics.CounterVolume.Add(set.Volume())
	l.log.Debug("set logged", "session", sessionID, "exercise", exerciseID,
		"set_number", set.SetNumber, "weight", set.Weight, "reps", set.Reps, "intensity", intensity)
	return set, true, nil
}

// EndResult describes how a session ended.
type EndResult struct {
	Session   models.Session `json:"session"`
	Completed bool           `json:"completed"`
	SetCount  int            `json:"set_count"`
}

// EndSession completes the active session when it has at least one set and a
// positive volume, and otherwise deletes it with all its sets. The rest
// timer and metronome are reset whatever happens.
func (l *Logbook) EndSession(ctx context.Context) (EndResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.metronome.Stop()
	defer l.rest.Reset()

	if l.active == nil {
		return EndResult{}, ErrNoActiveSession
	}
	s := *l.active

	sets, err := l.store.SessionSets(ctx, s.ID)
	if err != nil {
		return EndResult{}, fmt.Errorf("loading session sets: %w", err)
	}
	var volume float64
	for _, set := range sets {
		volume += set.Volume()
	}

	res := EndResult{SetCount: len(sets)}
	if len(sets) > 0 && volume > 0 {
		end := l.clock.Now()
		if err := l.store.CompleteSession(ctx, s.ID, end, volume); err != nil {
			return EndResult{}, fmt.Errorf("completing session: %w", err)
		}
		s.EndTime = end
		s.TotalVolume = volume
		s.Status = models.StatusCompleted
		res.Completed = true
		l.metrics.CounterSessionsEnded.WithLabelValues("completed").Inc()
		l.metrics.HistogramSessionDuration.Observe(s.Duration().Minutes())
		l.log.Info("session completed", "session", s.ID, "sets", len(sets), "volume", volume)
	} else {
		if err := l.store.DiscardSession(ctx, s.ID); err != nil {
			return EndResult{}, fmt.Errorf("discarding session: %w", err)
		}
		l.metrics.CounterSessionsEnded.WithLabelValues("discarded").Inc()
		l.log.Info("session discarded", "session", s.ID, "sets", len(sets))
	}
	res.Session = s

	l.active = nil
	clear(l.inputs)
	l.metrics.GaugeActiveSession.Set(0)
	return res, nil
}

// ExerciseSettings are the user-editable fields of an exercise. Nil fields
// are left unchanged.
type ExerciseSettings struct {
	DefaultWeight *float64 `json:"default_weight,omitempty"`
	TargetReps    *int     `json:"target_reps,omitempty"`
	TargetSets    *int     `json:"target_sets,omitempty"`
}

// UpdateExercise applies settings to an exercise and returns the result.
func (l *Logbook) UpdateExercise(ctx context.Context, exerciseID string, st ExerciseSettings) (models.Exercise, error) {
	if w := st.DefaultWeight; w != nil && (math.IsNaN(*w) || math.IsInf(*w, 0) || *w < 0 || *w > MaxWeight) {
		return models.Exercise{}, fmt.Errorf("default weight %v: %w", *w, ErrInvalidInput)
	}
	if r := st.TargetReps; r != nil && (*r < 1 || *r > MaxTargetReps) {
		return models.Exercise{}, fmt.Errorf("target reps %d: %w", *r, ErrInvalidInput)
	}
	if s := st.TargetSets; s != nil && (*s < 1 || *s > MaxTargetSets) {
		return models.Exercise{}, fmt.Errorf("target sets %d: %w", *s, ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ex, err := l.store.GetExercise(ctx, exerciseID)
	if err != nil {
		return models.Exercise{}, fmt.Errorf("loading exercise: %w", err)
	}
	if st.DefaultWeight != nil {
		ex.DefaultWeight = *st.DefaultWeight
	}
	if st.TargetReps != nil {
		ex.TargetReps = *st.TargetReps
	}
	if st.TargetSets != nil {
		ex.TargetSets = *st.TargetSets
	}
	if err := l.store.UpdateExercise(ctx, ex); err != nil {
		return models.Exercise{}, fmt.Errorf("updating exercise: %w", err)
	}
	l.log.Info("exercise updated", "exercise", ex.ID, "default_weight", ex.DefaultWeight,
		"target_reps", ex.TargetReps, "target_sets", ex.TargetSets)
	return ex, nil
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
