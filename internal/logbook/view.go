package logbook

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/meltforce/tinylifts/internal/models"
	"github.com/meltforce/tinylifts/internal/progress"
	"github.com/meltforce/tinylifts/internal/timing"
)

// ExerciseView is one exercise card of the active session.
type ExerciseView struct {
	Exercise    models.Exercise        `json:"exercise"`
	Input       Input                  `json:"input"`
	Sets        []models.Set           `json:"sets"`
	Progression progress.PlateauResult `json:"progression"`
}

// ActiveView is everything the logging screen shows for the active session.
type ActiveView struct {
	Session     models.Session        `json:"session"`
	WorkoutName string                `json:"workout_name"`
	Elapsed     string                `json:"elapsed"`
	ElapsedSec  int                   `json:"elapsed_sec"`
	Exercises   []ExerciseView        `json:"exercises"`
	Volume      progress.VolumeInfo   `json:"volume"`
	Rest        timing.RestState      `json:"rest"`
	Metronome   timing.MetronomeState `json:"metronome"`
}

// Active returns the view of the active session, or ok=false when there is
// none.
func (l *Logbook) Active(ctx context.Context) (view ActiveView, ok bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil {
		return ActiveView{}, false, nil
	}
	s := *l.active

	snap, err := l.store.Snapshot(ctx)
	if err != nil {
		return ActiveView{}, false, fmt.Errorf("loading snapshot: %w", err)
	}

	elapsed := max(l.clock.Now().Sub(s.StartTime), 0)
	view = ActiveView{
		Session:     s,
		WorkoutName: snap.Workouts[s.WorkoutID].Name,
		Elapsed:     FormatElapsed(elapsed),
		ElapsedSec:  int(elapsed / time.Second),
		Volume:      progress.CompareVolume(snap, s.ID),
		Rest:        l.rest.State(),
		Metronome:   l.metronome.State(),
	}

	bySet := make(map[string][]models.Set)
	for _, set := range snap.Sets {
		if set.SessionID == s.ID {
			bySet[set.ExerciseID] = append(bySet[set.ExerciseID], set)
		}
	}
	for _, ex := range progress.WorkoutExercises(snap, s.WorkoutID) {
		in, ok := l.inputs[ex.ID]
		if !ok {
			in = defaultInput(ex)
		}
		sets := bySet[ex.ID]
		sort.SliceStable(sets, func(i, j int) bool { return sets[i].SetNumber < sets[j].SetNumber })
		view.Exercises = append(view.Exercises, ExerciseView{
			Exercise:    ex,
			Input:       in,
			Sets:        sets,
			Progression: progress.Progression(snap, ex.ID),
		})
	}
	return view, true, nil
}

// FormatElapsed renders d as mm:ss, with minutes growing past 99.
func FormatElapsed(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
