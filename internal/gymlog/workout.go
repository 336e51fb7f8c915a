package gymlog

import (
	"encoding/json"
	"math"
	"time"
)

type Exercise struct {
	Name   string  `json:"name"`
	Sets   int     `json:"sets"`
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight"`
	Notes  *string `json:"notes,omitempty"`
}

// UnmarshalJSON accepts fractional sets and reps, truncating them.
func (e *Exercise) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name   string   `json:"name"`
		Sets   *float64 `json:"sets"`
		Reps   *float64 `json:"reps"`
		Weight *float64 `json:"weight"`
		Notes  *string  `json:"notes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = Exercise{
		Name:   raw.Name,
		Sets:   nonNegativeInt(raw.Sets),
		Reps:   nonNegativeInt(raw.Reps),
		Weight: nonNegative(raw.Weight),
		Notes:  raw.Notes,
	}
	return nil
}

type Workout struct {
	ID        string     `json:"id"`
	Date      Date       `json:"date"`
	Title     string     `json:"title"`
	Duration  *int       `json:"duration"`
	Notes     *string    `json:"notes"`
	Exercises []Exercise `json:"exercises"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// WorkoutData is the client-writable part of a workout, used for both inserts and patches.
type WorkoutData struct {
	Date      Date       `json:"date"`
	Title     string     `json:"title"`
	Duration  *int       `json:"duration"`
	Notes     *string    `json:"notes"`
	Exercises []Exercise `json:"exercises"`
}

func (w Workout) Data() WorkoutData {
	return WorkoutData{
		Date:      w.Date,
		Title:     w.Title,
		Duration:  w.Duration,
		Notes:     w.Notes,
		Exercises: w.Exercises,
	}
}

func nonNegative(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || *v < 0 {
		return 0
	}
	return *v
}

func nonNegativeInt(v *float64) int {
	return int(math.Trunc(nonNegative(v)))
}
