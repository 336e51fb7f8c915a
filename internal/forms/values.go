package forms

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/2beens/whole2swole/internal/gymlog"
)

// form field names shared with the page templates
const (
	FieldDate     = "date"
	FieldTitle    = "title"
	FieldDuration = "duration"
	FieldNotes    = "notes"

	FieldExerciseName   = "exercise_name"
	FieldExerciseSets   = "exercise_sets"
	FieldExerciseReps   = "exercise_reps"
	FieldExerciseWeight = "exercise_weight"
	FieldExerciseNotes  = "exercise_notes"

	FieldWeight  = "weight"
	FieldBodyFat = "body_fat"
	FieldChest   = "chest"
	FieldWaist   = "waist"
	FieldHips    = "hips"
	FieldArms    = "arms"
	FieldLegs    = "legs"

	FieldPIN = "pin"
)

// WorkoutFormFromValues rebuilds the typed form from posted values.
// Exercise fields are parallel lists, one entry per row. When editing, an untouched stored
// duration is kept even if it is longer than the input accepts.
func WorkoutFormFromValues(values url.Values, editing *gymlog.Workout) *WorkoutForm {
	f := &WorkoutForm{
		Date:  values.Get(FieldDate),
		Title: values.Get(FieldTitle),
		Notes: values.Get(FieldNotes),
	}

	rawDuration := strings.TrimSpace(values.Get(FieldDuration))
	if editing != nil && editing.Duration != nil && rawDuration == strconv.Itoa(*editing.Duration) {
		f.Duration = rawDuration
	} else {
		f.SetDuration(rawDuration)
	}

	names := values[FieldExerciseName]
	for i := range names {
		f.Exercises = append(f.Exercises, ExerciseInput{
			Name:   names[i],
			Sets:   at(values[FieldExerciseSets], i),
			Reps:   at(values[FieldExerciseReps], i),
			Weight: at(values[FieldExerciseWeight], i),
			Notes:  at(values[FieldExerciseNotes], i),
		})
	}
	if len(f.Exercises) == 0 {
		f.Exercises = []ExerciseInput{BlankExercise()}
	}

	return f
}

func BodyStatFormFromValues(values url.Values) *BodyStatForm {
	return &BodyStatForm{
		Date:    values.Get(FieldDate),
		Weight:  values.Get(FieldWeight),
		BodyFat: values.Get(FieldBodyFat),
		Chest:   values.Get(FieldChest),
		Waist:   values.Get(FieldWaist),
		Hips:    values.Get(FieldHips),
		Arms:    values.Get(FieldArms),
		Legs:    values.Get(FieldLegs),
		Notes:   values.Get(FieldNotes),
	}
}

func at(list []string, i int) string {
	if i < len(list) {
		return list[i]
	}
	return ""
}
