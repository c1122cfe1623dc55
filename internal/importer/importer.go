// Package importer loads sessions from other training apps into the store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/tinylifts/internal/ingest/alpha"
	"github.com/meltforce/tinylifts/internal/logbook"
	"github.com/meltforce/tinylifts/internal/models"
	"github.com/meltforce/tinylifts/internal/storage"
)

// Stats tracks import progress.
type Stats struct {
	SessionsParsed     int `json:"sessions_parsed"`
	SessionsImported   int `json:"sessions_imported"`
	SessionsDuplicated int `json:"sessions_duplicated"`
	SessionsSkipped    int `json:"sessions_skipped"`

	SetsImported int `json:"sets_imported"`
	SetsSkipped  int `json:"sets_skipped"`

	UnmatchedExercises []string `json:"unmatched_exercises,omitempty"`
}

// aliases maps lower-cased export names onto seeded exercises.
var aliases = map[string]string{
	"squat":                 storage.ExerciseSquat,
	"squats":                storage.ExerciseSquat,
	"back squat":            storage.ExerciseSquat,
	"barbell squat":         storage.ExerciseSquat,
	"bench press":           storage.ExerciseBench,
	"barbell bench press":   storage.ExerciseBench,
	"flat bench press":      storage.ExerciseBench,
	"deadlift":              storage.ExerciseDeadlift,
	"deadlifts":             storage.ExerciseDeadlift,
	"conventional deadlift": storage.ExerciseDeadlift,
	"overhead press":        storage.ExerciseOHP,
	"ohp":                   storage.ExerciseOHP,
	"military press":        storage.ExerciseOHP,
	"standing press":        storage.ExerciseOHP,
	"barbell row":           storage.ExerciseRow,
	"bent over row":         storage.ExerciseRow,
	"bent-over row":         storage.ExerciseRow,
	"pendlay row":           storage.ExerciseRow,
}

// Importer converts Alpha Progression exports into completed sessions.
type Importer struct {
	store  storage.Store
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer. In dry-run mode nothing is written.
func New(store storage.Store, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{store: store, log: log, dryRun: dryRun}
}

// ImportAlpha reads one export. Each session becomes a completed session
// of the workout sharing the most exercises with it. Warmups,
// bodyweight-plus sets and exercises with no counterpart are skipped.
// Re-importing the same export is a no-op.
func (imp *Importer) ImportAlpha(ctx context.Context, r io.Reader) (*Stats, error) {
	sessions, err := alpha.Parse(r)
	if err != nil {
		return &imp.stats, fmt.Errorf("parsing export: %w", err)
	}
	imp.stats.SessionsParsed += len(sessions)

	exercises, err := imp.store.ListExercises(ctx)
	if err != nil {
		return &imp.stats, fmt.Errorf("listing exercises: %w", err)
	}
	workouts, err := imp.store.ListWorkouts(ctx)
	if err != nil {
		return &imp.stats, fmt.Errorf("listing workouts: %w", err)
	}
	cat := catalog{byName: make(map[string]string), ids: make(map[string]bool)}
	for _, ex := range exercises {
		cat.byName[strings.ToLower(ex.Name)] = ex.ID
		cat.ids[ex.ID] = true
	}

	for _, s := range sessions {
		if err := imp.importSession(ctx, s, cat, workouts); err != nil {
			return &imp.stats, fmt.Errorf("importing session %s: %w", s.Date.Format("2006-01-02 15:04"), err)
		}
	}
	return &imp.stats, nil
}

func (imp *Importer) importSession(ctx context.Context, s alpha.Session, cat catalog, workouts []models.Workout) error {
	id := SessionID(s.Date)
	if _, err := imp.store.GetSession(ctx, id); err == nil {
		imp.stats.SessionsDuplicated++
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	type loggedSet struct {
		exerciseID string
		set        alpha.Set
	}
	var logged []loggedSet
	present := make(map[string]int)
	for _, ex := range s.Exercises {
		exID, ok := imp.match(ex.Name, cat)
		if !ok {
			imp.stats.SetsSkipped += len(ex.Sets)
			continue
		}
		for _, set := range ex.Sets {
			if set.IsWarmup || set.IsBodyweightPlus || !inBounds(set) {
				imp.stats.SetsSkipped++
				continue
			}
			present[exID]++
			logged = append(logged, loggedSet{exerciseID: exID, set: set})
		}
	}

	// Sets for exercises outside the chosen workout are dropped.
	w, found := pickWorkout(workouts, present)
	var sets []models.Set
	var volume float64
	numbers := make(map[string]int)
	for _, l := range logged {
		if !found || !w.HasExercise(l.exerciseID) {
			imp.stats.SetsSkipped++
			continue
		}
		numbers[l.exerciseID]++
		set := models.Set{
			ID:         "set-" + uuid.NewString(),
			SessionID:  id,
			ExerciseID: l.exerciseID,
			Weight:     l.set.WeightKg,
			Reps:       l.set.Reps,
			// Exports carry no per-set times; keep file order.
			Timestamp: s.Date.Add(time.Duration(len(sets)) * time.Second),
			SetNumber: numbers[l.exerciseID],
		}
		volume += set.Volume()
		sets = append(sets, set)
	}
	if len(sets) == 0 || volume <= 0 {
		imp.stats.SessionsSkipped++
		imp.log.Info("skipping session without matching sets", "session", s.Name, "date", s.Date)
		return nil
	}

	imp.stats.SessionsImported++
	imp.stats.SetsImported += len(sets)
	if imp.dryRun {
		return nil
	}

	end := s.Date.Add(s.Duration)
	if err := imp.store.CreateSession(ctx, models.Session{ID: id, WorkoutID: w.ID, StartTime: s.Date, Status: models.StatusActive}); err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	if err := imp.writeSets(ctx, id, end, sets, volume); err != nil {
		if derr := imp.store.DiscardSession(ctx, id); derr != nil {
			imp.log.Error("discarding partial session", "session", id, "error", derr)
		}
		return err
	}
	imp.log.Debug("session imported", "session", id, "workout", w.ID, "sets", len(sets), "volume", volume)
	return nil
}

// writeSets stores a session's sets and marks it completed.
func (imp *Importer) writeSets(ctx context.Context, id string, end time.Time, sets []models.Set, volume float64) error {
	for _, set := range sets {
		if err := imp.store.CreateSet(ctx, set); err != nil {
			return fmt.Errorf("creating set: %w", err)
		}
	}
	if err := imp.store.CompleteSession(ctx, id, end, volume); err != nil {
		return fmt.Errorf("completing session: %w", err)
	}
	return nil
}

// catalog indexes the store's exercises for name matching.
type catalog struct {
	byName map[string]string
	ids    map[string]bool
}

// match resolves an export exercise name by exact store name, then alias.
// Misses are recorded once in the stats.
func (imp *Importer) match(name string, cat catalog) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if id, ok := cat.byName[key]; ok {
		return id, true
	}
	if id, ok := aliases[key]; ok && cat.ids[id] {
		return id, true
	}
	if !slices.Contains(imp.stats.UnmatchedExercises, name) {
		imp.stats.UnmatchedExercises = append(imp.stats.UnmatchedExercises, name)
	}
	return "", false
}

// pickWorkout returns the workout containing the most of the logged
// exercises. Ties go to the earlier workout in list order.
func pickWorkout(workouts []models.Workout, logged map[string]int) (models.Workout, bool) {
	var best models.Workout
	bestHits := 0
	for _, w := range workouts {
		hits := 0
		for exID := range logged {
			if w.HasExercise(exID) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = w, hits
		}
	}
	return best, bestHits > 0
}

func inBounds(s alpha.Set) bool {
	return s.WeightKg >= 0 && s.WeightKg <= logbook.MaxWeight && s.Reps >= 0 && s.Reps <= logbook.MaxReps
}

// SessionID derives a stable session ID from an export's start time.
func SessionID(start time.Time) string {
	return "ses-alpha-" + start.UTC().Format("20060102T1504")
}
