// Package views projects the gateway collections into what the pages show.
// Nothing here sorts: the collections arrive newest first.
package views

import (
	"github.com/2beens/whole2swole/internal/forms"
	"github.com/2beens/whole2swole/internal/gymlog"
)

// Placeholder stands in for a value that does not exist yet.
const Placeholder = "—"

type Dashboard struct {
	TotalWorkouts     int
	LatestWorkout     string
	LatestWorkoutDate string
	LatestWeight      string
	LatestWeightDate  string
}

func NewDashboard(workouts []gymlog.Workout, stats []gymlog.BodyStat) Dashboard {
	d := Dashboard{
		TotalWorkouts: len(workouts),
		LatestWorkout: Placeholder,
		LatestWeight:  Placeholder,
	}

	if len(workouts) > 0 {
		d.LatestWorkout = workouts[0].Title
		d.LatestWorkoutDate = workouts[0].Date.String()
	}
	if len(stats) > 0 {
		d.LatestWeightDate = stats[0].Date.String()
		if stats[0].Weight != nil {
			d.LatestWeight = forms.FormatNumber(stats[0].Weight)
		}
	}

	return d
}

type HistoryRow struct {
	ID            string
	Title         string
	Date          string
	ExerciseCount int
	// empty when the workout has no duration
	Duration string
	Notes    string
}

func NewHistory(workouts []gymlog.Workout) []HistoryRow {
	rows := make([]HistoryRow, 0, len(workouts))
	for _, w := range workouts {
		row := HistoryRow{
			ID:            w.ID,
			Title:         w.Title,
			Date:          w.Date.String(),
			ExerciseCount: len(w.Exercises),
			Notes:         forms.FormatString(w.Notes),
		}
		if w.Duration != nil && *w.Duration > 0 {
			row.Duration = forms.FormatInt(w.Duration)
		}
		rows = append(rows, row)
	}
	return rows
}

type BodyStatEntry struct {
	ID      string
	Date    string
	Weight  string
	BodyFat string
	Notes   string
}

func NewBodyStatEntries(stats []gymlog.BodyStat) []BodyStatEntry {
	entries := make([]BodyStatEntry, 0, len(stats))
	for _, s := range stats {
		entries = append(entries, BodyStatEntry{
			ID:      s.ID,
			Date:    s.Date.String(),
			Weight:  orPlaceholder(forms.FormatNumber(s.Weight)),
			BodyFat: orPlaceholder(forms.FormatNumber(s.BodyFat)),
			Notes:   forms.FormatString(s.Notes),
		})
	}
	return entries
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
