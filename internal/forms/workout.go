package forms

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/whole2swole/internal/gymlog"
	"github.com/2beens/whole2swole/internal/store"
	"github.com/2beens/whole2swole/internal/telemetry/metrics"
	"github.com/2beens/whole2swole/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultWorkoutTitle = "Workout"

	MessageTitleRequired    = "Please give your workout a title."
	MessageExerciseRequired = "Add at least one exercise name (like “Bench Press”)."
	MessageWorkoutSaved     = "Workout saved ✅"
	MessageChangesSaved     = "Saved changes ✅"
)

// ExerciseInput is one exercise row as typed, before cleaning.
type ExerciseInput struct {
	Name   string
	Sets   string
	Reps   string
	Weight string
	Notes  string
}

func BlankExercise() ExerciseInput {
	return ExerciseInput{Sets: "3", Reps: "10", Weight: "0"}
}

type WorkoutForm struct {
	Date      string
	Title     string
	Duration  string
	Notes     string
	Exercises []ExerciseInput
}

func NewWorkoutForm(today gymlog.Date) *WorkoutForm {
	return &WorkoutForm{
		Date:      today.String(),
		Title:     DefaultWorkoutTitle,
		Exercises: []ExerciseInput{BlankExercise()},
	}
}

// WorkoutFormFrom pre-populates a form from an existing workout for editing.
func WorkoutFormFrom(w gymlog.Workout) *WorkoutForm {
	f := &WorkoutForm{
		Date:     w.Date.String(),
		Title:    w.Title,
		Duration: FormatInt(w.Duration),
		Notes:    FormatString(w.Notes),
	}

	for _, e := range w.Exercises {
		weight := e.Weight
		f.Exercises = append(f.Exercises, ExerciseInput{
			Name:   e.Name,
			Sets:   strconv.Itoa(e.Sets),
			Reps:   strconv.Itoa(e.Reps),
			Weight: FormatNumber(&weight),
			Notes:  FormatString(e.Notes),
		})
	}
	if len(f.Exercises) == 0 {
		f.Exercises = []ExerciseInput{BlankExercise()}
	}

	return f
}

func (f *WorkoutForm) AddExercise() {
	f.Exercises = append(f.Exercises, BlankExercise())
}

// RemoveExercise drops the row at i. The last remaining row is never removed.
func (f *WorkoutForm) RemoveExercise(i int) bool {
	if len(f.Exercises) <= 1 || i < 0 || i >= len(f.Exercises) {
		return false
	}
	f.Exercises = append(f.Exercises[:i], f.Exercises[i+1:]...)
	return true
}

func (f *WorkoutForm) SetDuration(raw string) {
	f.Duration = Digits(raw, DurationMaxDigits)
}

// Validate checks the title, then the cleaned exercise rows, and builds the record data.
// A blank or malformed date falls back to today.
func (f *WorkoutForm) Validate(today gymlog.Date) (gymlog.WorkoutData, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return gymlog.WorkoutData{}, &ValidationError{Message: MessageTitleRequired}
	}

	exercises := CleanExercises(f.Exercises)
	if len(exercises) == 0 {
		return gymlog.WorkoutData{}, &ValidationError{Message: MessageExerciseRequired}
	}

	date, err := gymlog.ParseDate(strings.TrimSpace(f.Date))
	if err != nil {
		date = today
	}

	return gymlog.WorkoutData{
		Date:      date,
		Title:     title,
		Duration:  Minutes(f.Duration),
		Notes:     OptionalString(f.Notes),
		Exercises: exercises,
	}, nil
}

// CleanExercises trims names and notes and drops rows whose name is blank, keeping order.
func CleanExercises(rows []ExerciseInput) []gymlog.Exercise {
	cleaned := make([]gymlog.Exercise, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			continue
		}
		cleaned = append(cleaned, gymlog.Exercise{
			Name:   name,
			Sets:   Count(row.Sets),
			Reps:   Count(row.Reps),
			Weight: Amount(row.Weight),
			Notes:  OptionalString(row.Notes),
		})
	}
	return cleaned
}

type WorkoutSubmitter struct {
	busyGuard
	saver   WorkoutSaver
	metrics *metrics.Manager
	now     func() time.Time
}

func NewWorkoutSubmitter(saver WorkoutSaver, metricsManager *metrics.Manager) *WorkoutSubmitter {
	return &WorkoutSubmitter{
		saver:   saver,
		metrics: metricsManager,
		now:     time.Now,
	}
}

// Submit validates the form and creates a workout, or updates editing when it is set.
// On a create the form is reset to a blank one; on any failure the typed values are kept.
func (s *WorkoutSubmitter) Submit(ctx context.Context, form *WorkoutForm, editing *gymlog.Workout) Result {
	if !s.acquire() {
		return Result{Status: StatusBusy, Message: MessageBusy}
	}
	defer s.release()

	ctx, span := tracing.GlobalTracer.Start(ctx, "forms.workout.submit")
	defer span.End()

	today := gymlog.DateOf(s.now())
	data, err := form.Validate(today)
	if err != nil {
		countSave(s.metrics, "workout", StatusRejected)
		return Result{Status: StatusRejected, Message: err.Error()}
	}

	if editing != nil {
		err = s.saver.UpdateWorkout(ctx, editing.ID, data)
	} else {
		err = s.saver.CreateWorkout(ctx, data)
	}
	if err != nil {
		log.Errorf("save workout: %s", err)
		countSave(s.metrics, "workout", StatusFailed)
		return Result{Status: StatusFailed, Message: store.MessageOf(err)}
	}

	countSave(s.metrics, "workout", StatusSaved)
	if editing != nil {
		return Result{Status: StatusSaved, Message: MessageChangesSaved}
	}

	*form = *NewWorkoutForm(today)
	return Result{Status: StatusSaved, Message: MessageWorkoutSaved}
}
