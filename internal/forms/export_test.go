package forms

import "time"

func SetWorkoutSubmitterClock(s *WorkoutSubmitter, now func() time.Time) {
	s.now = now
}

func SetBodyStatSubmitterClock(s *BodyStatSubmitter, now func() time.Time) {
	s.now = now
}
