package progress

import (
	"github.com/meltforce/tinylifts/internal/models"
)

// VolumeInfo compares a session's volume with the preceding completed
// session of the same workout.
type VolumeInfo struct {
	CurrentVolume     float64 `json:"current_volume"`
	PreviousVolume    float64 `json:"previous_volume"`
	VolumeDelta       float64 `json:"volume_delta"`
	PercentChange     float64 `json:"percent_change"`
	PreviousSessionID string  `json:"previous_session_id,omitempty"`
}

// CompareVolume computes the live volume of sessionID and compares it with
// the latest completed session of the same workout that started strictly
// earlier. Unknown sessions yield a zero VolumeInfo.
func CompareVolume(snap models.Snapshot, sessionID string) VolumeInfo {
	var info VolumeInfo
	cur, ok := snap.Sessions[sessionID]
	if !ok {
		return info
	}
	info.CurrentVolume = snap.SessionVolume(sessionID)

	var prev *models.Session
	for id, s := range snap.Sessions {
		if id == sessionID || s.WorkoutID != cur.WorkoutID || !s.Completed() {
			continue
		}
		if !s.StartTime.Before(cur.StartTime) {
			continue
		}
		if prev == nil || s.StartTime.After(prev.StartTime) ||
			(s.StartTime.Equal(prev.StartTime) && s.ID < prev.ID) {
			prev = &s
		}
	}
	if prev != nil {
		info.PreviousSessionID = prev.ID
		info.PreviousVolume = snap.SessionVolume(prev.ID)
	}

	info.VolumeDelta = info.CurrentVolume - info.PreviousVolume
	if info.PreviousVolume > 0 {
		info.PercentChange = roundHalfUp(info.VolumeDelta / info.PreviousVolume * 100)
	}
	return info
}
