// Package progress derives read-side views from a storage snapshot: exercise
// history, plateau and progression suggestions, session volume comparisons,
// the session list and the monthly calendar. Everything here is a pure
// function of its inputs.
package progress

import (
	"iter"
	"math"
	"sort"
	"time"

	"github.com/meltforce/tinylifts/internal/models"
)

// DefaultHistoryCount is the number of summaries returned when the caller
// does not ask for a specific count.
const DefaultHistoryCount = 3

// SetDetail is one set inside a SessionSummary.
type SetDetail struct {
	Weight    float64 `json:"weight"`
	Reps      int     `json:"reps"`
	SetNumber int     `json:"set_number"`
}

// SessionSummary aggregates one exercise's sets in one completed session.
type SessionSummary struct {
	SessionID   string      `json:"session_id"`
	MaxWeight   float64     `json:"max_weight"`
	TotalReps   int         `json:"total_reps"`
	TotalVolume float64     `json:"total_volume"`
	Date        time.Time   `json:"date"`
	Sets        []SetDetail `json:"sets"`
}

// ExerciseHistory yields the newest n completed-session summaries for an
// exercise, newest first. n <= 0 means DefaultHistoryCount. The sequence is
// recomputed from snap on every iteration.
func ExerciseHistory(snap models.Snapshot, exerciseID string, n int) iter.Seq[SessionSummary] {
	if n <= 0 {
		n = DefaultHistoryCount
	}
	return func(yield func(SessionSummary) bool) {
		for i, s := range summarize(snap, exerciseID) {
			if i >= n || !yield(s) {
				return
			}
		}
	}
}

func summarize(snap models.Snapshot, exerciseID string) []SessionSummary {
	bySession := make(map[string]*SessionSummary)
	var order []string
	for _, set := range snap.Sets {
		if set.ExerciseID != exerciseID {
			continue
		}
		sess, ok := snap.Sessions[set.SessionID]
		if !ok || !sess.Completed() {
			continue
		}
		sum, ok := bySession[set.SessionID]
		if !ok {
			sum = &SessionSummary{SessionID: set.SessionID, Date: sess.StartTime, MaxWeight: math.Inf(-1)}
			bySession[set.SessionID] = sum
			order = append(order, set.SessionID)
		}
		sum.MaxWeight = max(sum.MaxWeight, set.Weight)
		sum.TotalReps += set.Reps
		sum.TotalVolume += set.Volume()
		sum.Sets = append(sum.Sets, SetDetail{Weight: set.Weight, Reps: set.Reps, SetNumber: set.SetNumber})
	}

	out := make([]SessionSummary, 0, len(order))
	for _, id := range order {
		sum := bySession[id]
		sort.SliceStable(sum.Sets, func(i, j int) bool { return sum.Sets[i].SetNumber < sum.Sets[j].SetNumber })
		out = append(out, *sum)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].SessionID > out[j].SessionID
	})
	return out
}

// roundHalfUp rounds to the nearest integer with halves going up, matching
// the rounding the suggestion strings were written against.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
