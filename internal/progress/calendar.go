package progress

import (
	"time"

	"github.com/meltforce/tinylifts/internal/models"
)

// CalendarDay is one cell of the month grid. Padding cells have Day 0.
type CalendarDay struct {
	Day            int  `json:"day"`
	HasWorkout     bool `json:"has_workout"`
	IsToday        bool `json:"is_today"`
	IsCurrentMonth bool `json:"is_current_month"`
}

// CalendarMonth is a Sunday-first grid of one month.
type CalendarMonth struct {
	Year        int             `json:"year"`
	Month       time.Month      `json:"month"`
	Weeks       [][]CalendarDay `json:"weeks"`
	WorkoutDays int             `json:"workout_days"`
}

// Calendar marks the days of a month on which a completed session started.
// Days are taken in now's location; now's day is flagged as today when it
// falls inside the month.
func Calendar(snap models.Snapshot, year int, month time.Month, now time.Time) CalendarMonth {
	loc := now.Location()
	today := 0
	if y, m, d := now.Date(); y == year && m == month {
		today = d
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	trained := make(map[int]bool)
	for _, s := range snap.Sessions {
		if !s.Completed() || s.StartTime.IsZero() {
			continue
		}
		y, m, d := s.StartTime.In(loc).Date()
		if y == year && m == month {
			trained[d] = true
		}
	}

	cal := CalendarMonth{Year: year, Month: month, WorkoutDays: len(trained)}
	week := make([]CalendarDay, 0, 7)
	for range int(first.Weekday()) {
		week = append(week, CalendarDay{})
	}
	for day := 1; day <= daysInMonth; day++ {
		week = append(week, CalendarDay{
			Day:            day,
			HasWorkout:     trained[day],
			IsToday:        day == today,
			IsCurrentMonth: true,
		})
		if len(week) == 7 {
			cal.Weeks = append(cal.Weeks, week)
			week = make([]CalendarDay, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, CalendarDay{})
		}
		cal.Weeks = append(cal.Weeks, week)
	}
	return cal
}
