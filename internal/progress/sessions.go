package progress

import (
	"sort"
	"time"

	"github.com/meltforce/tinylifts/internal/models"
)

// WorkoutExercises returns the exercises of a workout in workout order.
// Links to unknown exercises are skipped; an unknown workout yields nil.
func WorkoutExercises(snap models.Snapshot, workoutID string) []models.Exercise {
	w, ok := snap.Workouts[workoutID]
	if !ok {
		return nil
	}
	links := append([]models.WorkoutExercise(nil), w.Exercises...)
	sort.SliceStable(links, func(i, j int) bool { return links[i].Order < links[j].Order })

	var out []models.Exercise
	for _, l := range links {
		if ex, ok := snap.Exercises[l.ExerciseID]; ok {
			out = append(out, ex)
		}
	}
	return out
}

// SessionListItem is one row of the session history list.
type SessionListItem struct {
	SessionID     string    `json:"session_id"`
	WorkoutID     string    `json:"workout_id"`
	WorkoutName   string    `json:"workout_name"`
	Date          time.Time `json:"date"`
	DurationMin   int       `json:"duration_min"`
	TotalVolume   float64   `json:"total_volume"`
	SetCount      int       `json:"set_count"`
	ExerciseCount int       `json:"exercise_count"`
}

// SessionHistory lists completed sessions newest first. limit <= 0 returns
// all of them.
func SessionHistory(snap models.Snapshot, limit int) []SessionListItem {
	type counts struct {
		sets      int
		exercises map[string]bool
	}
	bySession := make(map[string]*counts)
	for _, set := range snap.Sets {
		c, ok := bySession[set.SessionID]
		if !ok {
			c = &counts{exercises: make(map[string]bool)}
			bySession[set.SessionID] = c
		}
		c.sets++
		c.exercises[set.ExerciseID] = true
	}

	var out []SessionListItem
	for id, s := range snap.Sessions {
		if !s.Completed() {
			continue
		}
		name := "Workout"
		if w, ok := snap.Workouts[s.WorkoutID]; ok && w.Name != "" {
			name = w.Name
		}
		item := SessionListItem{
			SessionID:   id,
			WorkoutID:   s.WorkoutID,
			WorkoutName: name,
			Date:        s.StartTime,
			DurationMin: int(roundHalfUp(s.Duration().Minutes())),
			TotalVolume: s.TotalVolume,
		}
		if c, ok := bySession[id]; ok {
			item.SetCount = c.sets
			item.ExerciseCount = len(c.exercises)
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].SessionID > out[j].SessionID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// DataStats holds aggregate statistics about the logbook.
type DataStats struct {
	TotalSessions  int               `json:"total_sessions"`
	TotalSets      int               `json:"total_sets"`
	TotalVolume    float64           `json:"total_volume"`
	EarliestData   *time.Time        `json:"earliest_data"`
	LatestData     *time.Time        `json:"latest_data"`
	SessionsByType []WorkoutTypeStat `json:"sessions_by_workout"`
}

// WorkoutTypeStat holds summary stats for one workout.
type WorkoutTypeStat struct {
	WorkoutID     string  `json:"workout_id"`
	Name          string  `json:"name"`
	Count         int     `json:"count"`
	TotalDuration float64 `json:"total_duration_sec"`
	TotalVolume   float64 `json:"total_volume"`
}

// Stats aggregates completed sessions and their sets.
func Stats(snap models.Snapshot) DataStats {
	var st DataStats
	byWorkout := make(map[string]*WorkoutTypeStat)
	for _, s := range snap.Sessions {
		if !s.Completed() {
			continue
		}
		st.TotalSessions++
		st.TotalVolume += s.TotalVolume
		if st.EarliestData == nil || s.StartTime.Before(*st.EarliestData) {
			t := s.StartTime
			st.EarliestData = &t
		}
		if st.LatestData == nil || s.StartTime.After(*st.LatestData) {
			t := s.StartTime
			st.LatestData = &t
		}

		ws, ok := byWorkout[s.WorkoutID]
		if !ok {
			ws = &WorkoutTypeStat{WorkoutID: s.WorkoutID, Name: snap.Workouts[s.WorkoutID].Name}
			byWorkout[s.WorkoutID] = ws
		}
		ws.Count++
		ws.TotalDuration += s.Duration().Seconds()
		ws.TotalVolume += s.TotalVolume
	}
	for _, set := range snap.Sets {
		if s, ok := snap.Sessions[set.SessionID]; ok && s.Completed() {
			st.TotalSets++
		}
	}

	st.SessionsByType = make([]WorkoutTypeStat, 0, len(byWorkout))
	for _, ws := range byWorkout {
		st.SessionsByType = append(st.SessionsByType, *ws)
	}
	sort.Slice(st.SessionsByType, func(i, j int) bool {
		a, b := st.SessionsByType[i], st.SessionsByType[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.WorkoutID < b.WorkoutID
	})
	return st
}
