package models

import "sort"

// Snapshot is a consistent read-only copy of every table. Read-side
// computations take a Snapshot so they never observe a half-written
// session/set pair.
type Snapshot struct {
	Workouts  map[string]Workout
	Exercises map[string]Exercise
	Sessions  map[string]Session
	// Sets are ordered by insertion.
	Sets []Set
}

// NewSnapshot returns an empty snapshot with initialised maps.
func NewSnapshot() Snapshot {
	return Snapshot{
		Workouts:  make(map[string]Workout),
		Exercises: make(map[string]Exercise),
		Sessions:  make(map[string]Session),
	}
}

// SessionSets returns the sets of a session ordered by exercise then set number.
func (s Snapshot) SessionSets(sessionID string) []Set {
	var out []Set
	for _, set := range s.Sets {
		if set.SessionID == sessionID {
			out = append(out, set)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ExerciseID != out[j].ExerciseID {
			return out[i].ExerciseID < out[j].ExerciseID
		}
		return out[i].SetNumber < out[j].SetNumber
	})
	return out
}

// SessionVolume sums weight x reps over the sets of a session.
func (s Snapshot) SessionVolume(sessionID string) float64 {
	var v float64
	for _, set := range s.Sets {
		if set.SessionID == sessionID {
			v += set.Volume()
		}
	}
	return v
}
