package gymlog

import (
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

var ErrMissingField = errors.New("missing required field")

// DecodeWorkouts turns raw store rows into workouts, keeping the store's order.
// Rows that fail to decode or lack required fields are logged and dropped.
func DecodeWorkouts(rows []json.RawMessage) ([]Workout, int) {
	workouts := make([]Workout, 0, len(rows))
	dropped := 0
	for i, row := range rows {
		w, err := DecodeWorkout(row)
		if err != nil {
			log.Warnf("drop workout row %d: %s", i, err)
			dropped++
			continue
		}
		workouts = append(workouts, w)
	}
	return workouts, dropped
}

func DecodeWorkout(row json.RawMessage) (Workout, error) {
	var w Workout
	if err := json.Unmarshal(row, &w); err != nil {
		return Workout{}, fmt.Errorf("unmarshal workout: %w", err)
	}

	switch {
	case w.ID == "":
		return Workout{}, fmt.Errorf("%w: id", ErrMissingField)
	case w.Date.IsZero():
		return Workout{}, fmt.Errorf("workout %s: %w: date", w.ID, ErrMissingField)
	case w.Title == "":
		return Workout{}, fmt.Errorf("workout %s: %w: title", w.ID, ErrMissingField)
	case w.CreatedAt.IsZero():
		return Workout{}, fmt.Errorf("workout %s: %w: created_at", w.ID, ErrMissingField)
	}

	if w.Exercises == nil {
		w.Exercises = []Exercise{}
	}
	return w, nil
}

// DecodeBodyStats is the body stat counterpart of DecodeWorkouts.
func DecodeBodyStats(rows []json.RawMessage) ([]BodyStat, int) {
	stats := make([]BodyStat, 0, len(rows))
	dropped := 0
	for i, row := range rows {
		s, err := DecodeBodyStat(row)
		if err != nil {
			log.Warnf("drop body stat row %d: %s", i, err)
			dropped++
			continue
		}
		stats = append(stats, s)
	}
	return stats, dropped
}

func DecodeBodyStat(row json.RawMessage) (BodyStat, error) {
	var s BodyStat
	if err := json.Unmarshal(row, &s); err != nil {
		return BodyStat{}, fmt.Errorf("unmarshal body stat: %w", err)
	}

	switch {
	case s.ID == "":
		return BodyStat{}, fmt.Errorf("%w: id", ErrMissingField)
	case s.Date.IsZero():
		return BodyStat{}, fmt.Errorf("body stat %s: %w: date", s.ID, ErrMissingField)
	case s.CreatedAt.IsZero():
		return BodyStat{}, fmt.Errorf("body stat %s: %w: created_at", s.ID, ErrMissingField)
	}

	return s, nil
}
