package progress

import (
	"fmt"
	"iter"
	"strconv"

	"github.com/meltforce/tinylifts/internal/models"
)

// plateauWindow is how many summaries the plateau check looks at.
const plateauWindow = 3

// PlateauResult is the outcome of Analyze. Nil pointers mean "no suggestion".
type PlateauResult struct {
	IsPlateau             bool     `json:"is_plateau"`
	StagnantCount         int      `json:"stagnant_count"`
	SuggestedDeloadWeight *float64 `json:"suggested_deload_weight"`
	SuggestedRepScheme    *string  `json:"suggested_rep_scheme"`
	ProgressionSuggestion *string  `json:"progression_suggestion"`
	SuggestedNextWeight   *float64 `json:"suggested_next_weight"`
}

// Analyze looks at the newest three summaries of history and decides between
// a plateau (deload and rep-scheme change) and regular linear progression.
// A nil exercise is treated as an upper-body 5x5 lift.
func Analyze(history iter.Seq[SessionSummary], ex *models.Exercise) PlateauResult {
	var cfg models.Exercise
	if ex != nil {
		cfg = *ex
	}
	category := cfg.EffectiveCategory()
	targetReps := cfg.EffectiveTargetReps()
	targetSets := cfg.EffectiveTargetSets()

	var h []SessionSummary
	for s := range history {
		h = append(h, s)
		if len(h) == plateauWindow {
			break
		}
	}

	var res PlateauResult
	if len(h) < 2 {
		return res
	}
	latest := h[0]

	if len(h) >= 3 {
		weightStagnant := h[0].MaxWeight <= h[1].MaxWeight && h[1].MaxWeight <= h[2].MaxWeight
		repsStagnant := h[0].TotalReps <= h[1].TotalReps && h[1].TotalReps <= h[2].TotalReps
		if weightStagnant && repsStagnant {
			res.StagnantCount = 3
		} else if h[0].MaxWeight <= h[1].MaxWeight && h[0].TotalReps <= h[1].TotalReps {
			res.StagnantCount = 2
		}
	}
	res.IsPlateau = res.StagnantCount >= 3

	if res.IsPlateau {
		deload := roundHalfUp(latest.MaxWeight*0.9*2) / 2
		res.SuggestedDeloadWeight = &deload

		var scheme string
		switch {
		case targetSets == 5 && targetReps == 5:
			scheme = "3x5"
		case targetSets == 3 && targetReps == 5:
			scheme = "3x3"
		default:
			scheme = fmt.Sprintf("Deload to %s kg", formatKg(deload))
		}
		res.SuggestedRepScheme = &scheme
		return res
	}

	var msg string
	if latest.TotalReps >= targetReps*targetSets {
		inc := Increment(category)
		next := latest.MaxWeight + inc
		res.SuggestedNextWeight = &next
		msg = fmt.Sprintf("+%s kg next session → %s kg", formatKg(inc), formatKg(next))
	} else {
		msg = fmt.Sprintf("Keep at %s kg until all %dx%d completed", formatKg(latest.MaxWeight), targetSets, targetReps)
	}
	res.ProgressionSuggestion = &msg
	return res
}

// Progression runs Analyze on the stored history of one exercise.
func Progression(snap models.Snapshot, exerciseID string) PlateauResult {
	var ex *models.Exercise
	if e, ok := snap.Exercises[exerciseID]; ok {
		ex = &e
	}
	return Analyze(ExerciseHistory(snap, exerciseID, plateauWindow), ex)
}

// Increment is the per-session weight increase for a progression category.
func Increment(category string) float64 {
	switch category {
	case models.CategoryDeadlift:
		return 10
	case models.CategoryLower:
		return 5
	default:
		return 2.5
	}
}

// formatKg prints weights the shortest way: 105, 102.5.
func formatKg(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
